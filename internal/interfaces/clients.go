// Package interfaces defines service contracts for Fleece
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/fleece/internal/models"
)

// EODHDClient provides access to the EODHD market data API
type EODHDClient interface {
	// GetEOD retrieves end-of-day price data
	GetEOD(ctx context.Context, ticker string, opts ...EODOption) (*models.EODResponse, error)

	// GetRealTimeQuote retrieves the live quote for one ticker
	GetRealTimeQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error)

	// GetBulkRealTimeQuotes retrieves live quotes for several tickers in one call
	GetBulkRealTimeQuotes(ctx context.Context, tickers []string) ([]*models.RealTimeQuote, error)

	// GetFundamentals retrieves company metadata
	GetFundamentals(ctx context.Context, ticker string) (*models.CompanyMetadata, error)

	// GetTechnicals retrieves a technical indicator series, most recent first
	GetTechnicals(ctx context.Context, ticker, function string, params map[string]string) ([]models.IndicatorPoint, error)

	// Search looks up symbols by name or code
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
	Limit  int
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the period for EOD query
func WithPeriod(period string) EODOption {
	return func(p *EODParams) {
		p.Period = period
	}
}

// WithOrder sets the sort order ("a" or "d")
func WithOrder(order string) EODOption {
	return func(p *EODParams) {
		p.Order = order
	}
}

// WithLimit caps the number of bars kept, counted from the end of the series
func WithLimit(limit int) EODOption {
	return func(p *EODParams) {
		p.Limit = limit
	}
}
