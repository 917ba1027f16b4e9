package models

import (
	"time"
)

// RealTimeQuote holds a live OHLCV snapshot from the provider
type RealTimeQuote struct {
	Code          string    `json:"code"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`          // current/last price
	PreviousClose float64   `json:"previous_close"` // previous day's close
	Change        float64   `json:"change"`         // absolute change from previous close
	ChangePct     float64   `json:"change_p"`       // percentage change from previous close
	HasChange     bool      `json:"-"`              // provider supplied change fields
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse represents the EODHD API response
type EODResponse struct {
	Data []EODBar `json:"data"`
}

// CompanyMetadata is the subset of provider fundamentals shown on the
// stock detail page.
type CompanyMetadata struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange"`
	Currency      string   `json:"currency"`
	Country       string   `json:"country"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
	Description   string   `json:"description"`
	WebURL        string   `json:"web_url"`
	LogoURL       string   `json:"logo_url"`
	MarketCap     *float64 `json:"market_cap"`
	PE            *float64 `json:"pe_ratio"`
	EPS           *float64 `json:"eps"`
	DividendYield *float64 `json:"dividend_yield"`
	Beta          *float64 `json:"beta"`
	High52Week    *float64 `json:"high_52_week"`
	Low52Week     *float64 `json:"low_52_week"`
	Employees     *int64   `json:"employees"`
}

// IndicatorPoint is one dated row of a technical indicator series.
// Values holds the numeric columns the provider returned (e.g. "sma",
// or "macd", "signal", "divergence").
type IndicatorPoint struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// SearchResult is one row of a symbol search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// Snapshot is the live price of a ticker with its day change.
type Snapshot struct {
	Price        float64 `json:"price"`
	DayChange    float64 `json:"day_change"`
	DayChangePct float64 `json:"day_change_pct"`
}

// IndexPrice is one index on the market overview. Price is nil and Change
// reads "Data error" when the index could not be fetched.
type IndexPrice struct {
	Price  *float64 `json:"price"`
	Change string   `json:"change"`
}

// HotStock is one ranked entry of the hot stocks list.
type HotStock struct {
	Rank      int      `json:"rank"`
	Ticker    string   `json:"ticker"`
	Price     float64  `json:"price"`
	Change    float64  `json:"change"`
	ChangePct float64  `json:"change_pct"`
	AIScore   *float64 `json:"ai_score"`
}

// SectorPerformance is one sector ETF on the market overview.
type SectorPerformance struct {
	Sector    string   `json:"sector"`
	Ticker    string   `json:"ticker"`
	Price     *float64 `json:"price"`
	DayChange string   `json:"day_change"`
}

// DataErrorPlaceholder marks a field whose upstream fetch failed.
const DataErrorPlaceholder = "Data error"

// PricePoint is one bar of the stock detail chart.
type PricePoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// StockDetail is the composite payload for a single symbol. Sections that
// failed to load are null (or, for the grade, a null-valued placeholder).
type StockDetail struct {
	Symbol     string                        `json:"symbol"`
	Snapshot   Snapshot                      `json:"snapshot"`
	History    []PricePoint                  `json:"history"`
	Company    *CompanyMetadata              `json:"company"`
	Indicators map[string]map[string]float64 `json:"indicators"`
	Grade      MonthlyGrade                  `json:"grade"`
}
