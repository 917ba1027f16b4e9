package interfaces

import (
	"context"

	"github.com/bobmcallan/fleece/internal/models"
)

// PredictionService merges prediction and accuracy rows.
type PredictionService interface {
	// PredictionDetail returns the latest prediction merged with its accuracy row
	PredictionDetail(ctx context.Context, symbol string, g models.Granularity) (map[string]any, error)

	// TopPredictions returns the count rows with the highest predicted change
	TopPredictions(ctx context.Context, g models.Granularity, count int) ([]*models.PredictionRecord, error)

	// AllPredictions returns every row at the latest date ordered by symbol
	AllPredictions(ctx context.Context, g models.Granularity) ([]*models.PredictionRecord, error)

	// PredictedChange returns the latest daily predicted change, or nil
	PredictedChange(ctx context.Context, symbol string) (*float64, error)
}

// QuoteService serves live prices and the market overview.
type QuoteService interface {
	Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error)
	LastTwoCloses(ctx context.Context, ticker string) (latest, previous *float64)
	IndexPrices(ctx context.Context) map[string]models.IndexPrice
	HotStocks(ctx context.Context) ([]models.HotStock, error)
	SectorPerformance(ctx context.Context) []models.SectorPerformance
}

// MarketService builds the stock detail view and symbol search.
type MarketService interface {
	StockDetail(ctx context.Context, symbol string) (*models.StockDetail, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)

	// PriceChart renders the one-year close history as a PNG
	PriceChart(ctx context.Context, symbol string) ([]byte, error)
}

// AccountService handles registration and token issue.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// WatchlistService manages per-user watchlists.
type WatchlistService interface {
	List(ctx context.Context, userID string) ([]*models.WatchlistEntry, error)
	Add(ctx context.Context, userID, symbol string) (*models.WatchlistEntry, bool, error)
	Remove(ctx context.Context, userID, symbol string) error
}
