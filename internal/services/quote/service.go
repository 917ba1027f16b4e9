// Package quote serves live prices and the market overview panels.
package quote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

// closesLookback is wide enough to span long weekends and holidays.
const closesLookback = 14 * 24 * time.Hour

// Compile-time interface check
var _ interfaces.QuoteService = (*Service)(nil)

// predictedChanger supplies the hot-stock ai_score.
type predictedChanger interface {
	PredictedChange(ctx context.Context, symbol string) (*float64, error)
}

// Service implements QuoteService
type Service struct {
	eodhd       interfaces.EODHDClient
	predictions predictedChanger
	market      common.MarketConfig
	fanoutLimit int
	itemTimeout time.Duration
	logger      *common.Logger
	now         func() time.Time
}

// NewService creates a new quote service. predictions may be nil, in which
// case every ai_score is null.
func NewService(eodhd interfaces.EODHDClient, predictions predictedChanger, cfg *common.Config, logger *common.Logger) *Service {
	return &Service{
		eodhd:       eodhd,
		predictions: predictions,
		market:      cfg.Market,
		fanoutLimit: cfg.Clients.EODHD.FanoutLimit,
		itemTimeout: cfg.Clients.EODHD.GetItemTimeout(),
		logger:      logger,
		now:         time.Now,
	}
}

// FormatChange renders the move from previous to latest as "+1.00 (+1.00%)".
func FormatChange(latest, previous float64) string {
	change := latest - previous
	pct := 0.0
	if previous != 0 {
		pct = change / previous * 100
	}
	return fmt.Sprintf("%+.2f (%+.2f%%)", change, pct)
}

// Snapshot returns the current price and day change for a ticker.
func (s *Service) Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error) {
	q, err := s.eodhd.GetRealTimeQuote(ctx, ticker)
	if err != nil {
		return nil, common.Upstream(fmt.Errorf("real-time quote for %s: %w", ticker, err))
	}

	change, pct := dayChange(q)
	return &models.Snapshot{
		Price:        q.Close,
		DayChange:    change,
		DayChangePct: pct,
	}, nil
}

// LastTwoCloses returns the two most recent daily closes. With a single
// bar both values are that close. Any failure yields (nil, nil).
func (s *Service) LastTwoCloses(ctx context.Context, ticker string) (latest, previous *float64) {
	to := s.now()
	resp, err := s.eodhd.GetEOD(ctx, ticker,
		interfaces.WithDateRange(to.Add(-closesLookback), to),
		interfaces.WithPeriod("d"),
		interfaces.WithOrder("d"),
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to fetch recent closes")
		return nil, nil
	}
	if resp == nil || len(resp.Data) == 0 {
		s.logger.Warn().Str("ticker", ticker).Msg("No recent closes")
		return nil, nil
	}

	bars := resp.Data
	// Order is requested descending but not every endpoint honours it
	if len(bars) > 1 && bars[0].Date.Before(bars[len(bars)-1].Date) {
		bars = append([]models.EODBar(nil), bars...)
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.After(bars[j].Date) })
	}

	l := bars[0].Close
	if len(bars) == 1 {
		return &l, &l
	}
	p := bars[1].Close
	return &l, &p
}

// IndexPrices returns the configured market indices keyed by short name.
func (s *Service) IndexPrices(ctx context.Context) map[string]models.IndexPrice {
	indices := s.market.Indices
	prices := make([]models.IndexPrice, len(indices))

	common.FanOut(ctx, len(indices), s.fanoutLimit, s.itemTimeout, func(ctx context.Context, i int) {
		latest, previous := s.LastTwoCloses(ctx, indices[i].Ticker)
		if latest == nil {
			prices[i] = models.IndexPrice{Change: models.DataErrorPlaceholder}
			return
		}
		prices[i] = models.IndexPrice{Price: latest, Change: FormatChange(*latest, *previous)}
	})

	out := make(map[string]models.IndexPrice, len(indices))
	for i, idx := range indices {
		out[idx.Key] = prices[i]
	}
	return out
}

// SectorPerformance returns the day move of each configured sector ETF in
// configured order.
func (s *Service) SectorPerformance(ctx context.Context) []models.SectorPerformance {
	sectors := s.market.SectorETFs
	out := make([]models.SectorPerformance, len(sectors))

	common.FanOut(ctx, len(sectors), s.fanoutLimit, s.itemTimeout, func(ctx context.Context, i int) {
		sp := models.SectorPerformance{Sector: sectors[i].Sector, Ticker: sectors[i].Ticker}
		latest, previous := s.LastTwoCloses(ctx, sectors[i].Ticker)
		if latest == nil {
			sp.DayChange = models.DataErrorPlaceholder
		} else {
			sp.Price = latest
			sp.DayChange = FormatChange(*latest, *previous)
		}
		out[i] = sp
	})
	return out
}

// HotStocks ranks the configured tickers by day change using one bulk
// quote request.
func (s *Service) HotStocks(ctx context.Context) ([]models.HotStock, error) {
	tickers := s.market.HotStocks
	quotes, err := s.eodhd.GetBulkRealTimeQuotes(ctx, tickers)
	if err != nil {
		return nil, common.Upstream(fmt.Errorf("bulk real-time quotes: %w", err))
	}

	byCode := make(map[string]*models.RealTimeQuote, len(quotes))
	for _, q := range quotes {
		if q != nil {
			byCode[baseSymbol(q.Code)] = q
		}
	}

	stocks := make([]models.HotStock, 0, len(tickers))
	for _, t := range tickers {
		q, ok := byCode[baseSymbol(t)]
		if !ok {
			s.logger.Warn().Str("ticker", t).Msg("No quote returned for hot stock")
			continue
		}
		change, pct := dayChange(q)
		stocks = append(stocks, models.HotStock{
			Ticker:    strings.ToUpper(t),
			Price:     q.Close,
			Change:    change,
			ChangePct: pct,
		})
	}

	sort.SliceStable(stocks, func(i, j int) bool {
		if stocks[i].ChangePct != stocks[j].ChangePct {
			return stocks[i].ChangePct > stocks[j].ChangePct
		}
		return stocks[i].Ticker < stocks[j].Ticker
	})

	if s.predictions != nil {
		common.FanOut(ctx, len(stocks), s.fanoutLimit, s.itemTimeout, func(ctx context.Context, i int) {
			score, err := s.predictions.PredictedChange(ctx, stocks[i].Ticker)
			if err != nil {
				s.logger.Debug().Err(err).Str("ticker", stocks[i].Ticker).Msg("No ai_score")
				return
			}
			stocks[i].AIScore = score
		})
	}

	for i := range stocks {
		stocks[i].Rank = i + 1
	}
	return stocks, nil
}

// baseSymbol strips the exchange suffix: "AAPL.US" -> "AAPL".
func baseSymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if i := strings.IndexByte(code, '.'); i > 0 {
		return code[:i]
	}
	return code
}

// dayChange prefers the provider's change fields and falls back to the
// previous close.
func dayChange(q *models.RealTimeQuote) (change, pct float64) {
	if q.HasChange {
		return q.Change, q.ChangePct
	}
	change = q.Close - q.PreviousClose
	if q.PreviousClose != 0 {
		pct = change / q.PreviousClose * 100
	}
	return change, pct
}
