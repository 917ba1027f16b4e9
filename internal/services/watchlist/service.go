// Package watchlist provides per-user watchlist management services
package watchlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	store  interfaces.WatchlistStore
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a new watchlist service
func NewService(store interfaces.WatchlistStore, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.WatchlistEntry, error) {
	entries, err := s.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	if entries == nil {
		entries = []*models.WatchlistEntry{}
	}
	return entries, nil
}

// Add puts symbol on the user's watchlist. Adding a symbol that is already
// present is a no-op and reports created=false.
func (s *Service) Add(ctx context.Context, userID, symbol string) (*models.WatchlistEntry, bool, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, false, common.InvalidArgument("Symbol is required")
	}

	entry := &models.WatchlistEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Symbol:    symbol,
		CreatedAt: s.now().UTC(),
	}
	stored, created, err := s.store.AddEntry(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save watchlist entry: %w", err)
	}

	if created {
		s.logger.Info().Str("user", userID).Str("symbol", symbol).Msg("Watchlist entry added")
	}
	return stored, created, nil
}

// Remove takes symbol off the user's watchlist.
func (s *Service) Remove(ctx context.Context, userID, symbol string) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return common.InvalidArgument("Symbol is required")
	}

	removed, err := s.store.RemoveEntry(ctx, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	if !removed {
		return &common.ClassError{Class: common.ErrNotFound, Message: "Symbol not found in watchlist"}
	}

	s.logger.Info().Str("user", userID).Str("symbol", symbol).Msg("Watchlist entry removed")
	return nil
}
