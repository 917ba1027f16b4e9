package interfaces

import (
	"context"

	"github.com/bobmcallan/fleece/internal/models"
)

// StorageManager routes each area of data to its backend: prediction
// tables to the relational store, accounts and watchlists to SurrealDB.
type StorageManager interface {
	PredictionStore() PredictionStore
	UserStore() UserStore
	WatchlistStore() WatchlistStore

	// Ping checks every backend.
	Ping(ctx context.Context) error

	Close() error
}

// PredictionOrder selects the ordering of AllAtLatestDate.
type PredictionOrder int

const (
	// OrderByPredictedChange sorts by predicted change descending, nulls last, ties by symbol.
	OrderByPredictedChange PredictionOrder = iota
	// OrderBySymbol sorts by symbol ascending.
	OrderBySymbol
)

// PredictionStore reads the externally populated prediction tables.
// It never writes.
type PredictionStore interface {
	// LatestPrediction returns the row at the symbol's most recent date.
	LatestPrediction(ctx context.Context, symbol string, g models.Granularity) (*models.PredictionRecord, error)

	// Accuracy returns the confidence-interval row for the symbol.
	Accuracy(ctx context.Context, symbol string, g models.Granularity) (*models.AccuracyRecord, error)

	// AllAtLatestDate returns every row at the table-wide latest date, each
	// annotated with its predicted change. limit <= 0 means no limit.
	AllAtLatestDate(ctx context.Context, g models.Granularity, order PredictionOrder, limit int) ([]*models.PredictionRecord, error)

	// LatestGrade returns the most recent MonthlyGrades row for the symbol.
	LatestGrade(ctx context.Context, symbol string) (*models.MonthlyGrade, error)

	Ping(ctx context.Context) error
	Close() error
}

// UserStore persists accounts.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser fails with common.ErrConflict when the username or email is
	// taken; an email conflict also wraps common.ErrEmailTaken.
	CreateUser(ctx context.Context, user *models.User) error
}

// WatchlistStore persists watchlist entries. At most one entry exists per
// (user, symbol).
type WatchlistStore interface {
	ListEntries(ctx context.Context, userID string) ([]*models.WatchlistEntry, error)
	GetEntry(ctx context.Context, userID, symbol string) (*models.WatchlistEntry, error)
	// AddEntry stores the entry unless one exists; created reports which.
	// The stored entry is returned either way.
	AddEntry(ctx context.Context, entry *models.WatchlistEntry) (stored *models.WatchlistEntry, created bool, err error)
	// RemoveEntry reports whether an entry was deleted.
	RemoveEntry(ctx context.Context, userID, symbol string) (bool, error)
}
