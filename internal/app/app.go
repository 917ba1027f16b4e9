// Package app wires configuration, storage, the quote provider and the
// services into a single container shared by the HTTP server.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/fleece/internal/clients/eodhd"
	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/services/account"
	"github.com/bobmcallan/fleece/internal/services/market"
	"github.com/bobmcallan/fleece/internal/services/prediction"
	"github.com/bobmcallan/fleece/internal/services/quote"
	"github.com/bobmcallan/fleece/internal/services/watchlist"
	"github.com/bobmcallan/fleece/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	Storage           interfaces.StorageManager
	EODHDClient       interfaces.EODHDClient
	PredictionService interfaces.PredictionService
	QuoteService      interfaces.QuoteService
	MarketService     interfaces.MarketService
	AccountService    interfaces.AccountService
	WatchlistService  interfaces.WatchlistService
	StartupTime       time.Time

	logCloser io.Closer
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, FLEECE_CONFIG,
// fleece.toml next to the binary, then config/fleece.toml.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("FLEECE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "fleece.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fleece.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration, opens both storage areas and builds the
// services. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	configPath = resolveConfigPath(configPath, binDir)

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger, logCloser, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storageManager, err := storage.NewManager(ctx, logger, config)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.EODHD.APIKey == "" {
		logger.Warn().Msg("EODHD API key not configured - market endpoints will fail upstream")
	}
	eodhdClient := eodhd.NewClientFromConfig(config.Clients.EODHD, logger)

	a := New(config, logger, storageManager, eodhdClient)
	a.StartupTime = startupStart
	a.logCloser = logCloser

	logger.Info().Str("config", configPath).Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// New builds the services over already-open storage and provider client.
func New(config *common.Config, logger *common.Logger, store interfaces.StorageManager, eodhdClient interfaces.EODHDClient) *App {
	predictionService := prediction.NewService(store.PredictionStore(), logger)
	quoteService := quote.NewService(eodhdClient, predictionService, config, logger)
	marketService := market.NewService(eodhdClient, quoteService, store.PredictionStore(), config, logger)
	accountService := account.NewService(store.UserStore(), config.Auth, logger)
	watchlistService := watchlist.NewService(store.WatchlistStore(), logger)

	return &App{
		Config:            config,
		Logger:            logger,
		Storage:           store,
		EODHDClient:       eodhdClient,
		PredictionService: predictionService,
		QuoteService:      quoteService,
		MarketService:     marketService,
		AccountService:    accountService,
		WatchlistService:  watchlistService,
		StartupTime:       time.Now(),
	}
}

// Close releases storage and the log file.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
