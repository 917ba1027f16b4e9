package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/surrealdb/surrealdb.go"
)

// Manager owns the SurrealDB connection behind the account and watchlist stores.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	userStore      *UserStore
	watchlistStore *WatchlistStore
}

// tables defined on connect; SurrealDB v3 errors on querying non-existent tables.
var tables = []string{userTable, watchlistTable}

// NewManager connects to SurrealDB and prepares the account tables.
func NewManager(ctx context.Context, logger *common.Logger, config common.AccountsConfig) (*Manager, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManagerFromDB(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB account store initialized")

	return m, nil
}

// newManagerFromDB defines the tables on an already selected database.
func newManagerFromDB(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	indexSQL := fmt.Sprintf("DEFINE INDEX IF NOT EXISTS %s ON TABLE %s FIELDS email_key UNIQUE", userEmailIndex, userTable)
	if _, err := surrealdb.Query[any](ctx, db, indexSQL, nil); err != nil {
		return nil, fmt.Errorf("failed to define user email index: %w", err)
	}

	return &Manager{
		db:             db,
		logger:         logger,
		userStore:      NewUserStore(db, logger),
		watchlistStore: NewWatchlistStore(db, logger),
	}, nil
}

func (m *Manager) UserStore() *UserStore {
	return m.userStore
}

func (m *Manager) WatchlistStore() *WatchlistStore {
	return m.watchlistStore
}

// Ping runs a trivial query to confirm the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, m.db, "RETURN true", nil); err != nil {
		return fmt.Errorf("surrealdb ping: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}
