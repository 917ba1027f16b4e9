package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const watchlistTable = "watchlist"

// watchlistRecord is the stored form of a watchlist entry. The record key
// is <user>|<SYMBOL>, so one user holds at most one entry per symbol.
type watchlistRecord struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *watchlistRecord) toModel() *models.WatchlistEntry {
	return &models.WatchlistEntry{
		ID:        r.EntryID,
		UserID:    r.UserID,
		Symbol:    r.Symbol,
		CreatedAt: r.CreatedAt,
	}
}

// WatchlistStore keeps watchlist entries in the watchlist table.
type WatchlistStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewWatchlistStore(db *surrealdb.DB, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{
		db:     db,
		logger: logger,
	}
}

// watchlistKeySep cannot appear in a username, so the user part of a key
// is unambiguous whatever the symbol contains.
const watchlistKeySep = "|"

// Watchlist ID format: watchlist:<userID>|<SYMBOL>
func watchlistID(userID, symbol string) string {
	return userID + watchlistKeySep + symbol
}

func (s *WatchlistStore) ListEntries(ctx context.Context, userID string) ([]*models.WatchlistEntry, error) {
	sql := "SELECT * FROM watchlist WHERE user_id = $user_id ORDER BY created_at DESC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]watchlistRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}

	entries := make([]*models.WatchlistEntry, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			entries = append(entries, (*results)[0].Result[i].toModel())
		}
	}
	return entries, nil
}

// GetEntry returns the entry, or common.ErrNotFound.
func (s *WatchlistStore) GetEntry(ctx context.Context, userID, symbol string) (*models.WatchlistEntry, error) {
	rec, err := surrealdb.Select[watchlistRecord](ctx, s.db, surrealmodels.NewRecordID(watchlistTable, watchlistID(userID, symbol)))
	if err != nil {
		return nil, fmt.Errorf("failed to select watchlist entry: %w", err)
	}
	if rec == nil || rec.UserID != userID || rec.Symbol != symbol {
		return nil, common.NotFound("watchlist entry")
	}
	return rec.toModel(), nil
}

func (s *WatchlistStore) AddEntry(ctx context.Context, entry *models.WatchlistEntry) (*models.WatchlistEntry, bool, error) {
	if existing, err := s.GetEntry(ctx, entry.UserID, entry.Symbol); err == nil {
		return existing, false, nil
	}

	rec := watchlistRecord{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Symbol:    entry.Symbol,
		CreatedAt: entry.CreatedAt,
	}
	sql := "CREATE type::record('watchlist', $id) CONTENT $entry"
	vars := map[string]any{"id": watchlistID(entry.UserID, entry.Symbol), "entry": rec}

	if _, err := surrealdb.Query[[]watchlistRecord](ctx, s.db, sql, vars); err != nil {
		// Lost a race with a concurrent add of the same symbol
		if isAlreadyExistsError(err) {
			existing, getErr := s.GetEntry(ctx, entry.UserID, entry.Symbol)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to add watchlist entry: %w", err)
	}

	return rec.toModel(), true, nil
}

func (s *WatchlistStore) RemoveEntry(ctx context.Context, userID, symbol string) (bool, error) {
	if _, err := s.GetEntry(ctx, userID, symbol); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if _, err := surrealdb.Delete[watchlistRecord](ctx, s.db, surrealmodels.NewRecordID(watchlistTable, watchlistID(userID, symbol))); err != nil {
		return false, fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	return true, nil
}

var _ interfaces.WatchlistStore = (*WatchlistStore)(nil)
