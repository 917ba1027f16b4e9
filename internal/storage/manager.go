// Package storage provides the top-level StorageManager that routes the two
// storage areas: prediction tables (relational, read-only) and accounts
// (SurrealDB).
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/storage/predictiondb"
	"github.com/bobmcallan/fleece/internal/storage/surrealdb"
)

// accountBackend is the slice of the SurrealDB manager the router needs.
type accountBackend interface {
	Ping(ctx context.Context) error
	Close() error
}

// Manager implements interfaces.StorageManager over both storage areas.
type Manager struct {
	predictions interfaces.PredictionStore
	users       interfaces.UserStore
	watchlists  interfaces.WatchlistStore
	accounts    accountBackend
	logger      *common.Logger
}

// NewManager opens both storage areas.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	predictions, err := predictiondb.Open(ctx, config.Storage.Predictions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open prediction store: %w", err)
	}

	accounts, err := surrealdb.NewManager(ctx, logger, config.Storage.Accounts)
	if err != nil {
		predictions.Close()
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	logger.Info().
		Str("predictions", config.Storage.Predictions.Driver).
		Str("accounts", config.Storage.Accounts.Address).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		predictions: predictions,
		users:       accounts.UserStore(),
		watchlists:  accounts.WatchlistStore(),
		accounts:    accounts,
		logger:      logger,
	}, nil
}

func (m *Manager) PredictionStore() interfaces.PredictionStore {
	return m.predictions
}

func (m *Manager) UserStore() interfaces.UserStore {
	return m.users
}

func (m *Manager) WatchlistStore() interfaces.WatchlistStore {
	return m.watchlists
}

// Ping checks both areas and reports every failure.
func (m *Manager) Ping(ctx context.Context) error {
	var errs []error
	if err := m.predictions.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("prediction store: %w", err))
	}
	if m.accounts != nil {
		if err := m.accounts.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("account store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all storage areas.
func (m *Manager) Close() error {
	var errs []error
	if err := m.predictions.Close(); err != nil {
		errs = append(errs, err)
	}
	if m.accounts != nil {
		if err := m.accounts.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ interfaces.StorageManager = (*Manager)(nil)
