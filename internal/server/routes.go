package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/fleece/internal/common"
)

// route registers path with and without a trailing slash.
func route(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc(path, h)
	mux.HandleFunc(path+"/{$}", h)
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Accounts
	route(mux, "/register", s.handleRegister)
	route(mux, "/login", s.handleLogin)
	route(mux, "/token/refresh", s.handleTokenRefresh)

	// Watchlist
	route(mux, "/watchlist", s.requireAuth(s.handleWatchlistList))
	route(mux, "/watchlist/add", s.requireAuth(s.handleWatchlistAdd))
	route(mux, "/watchlist/remove", s.requireAuth(s.handleWatchlistRemove))

	// Predictions
	mux.HandleFunc("/prediction/", s.handlePredictionDetail)
	route(mux, "/top-predictions", s.handleTopPredictions)
	route(mux, "/all-predictions", s.handleAllPredictions)

	// Market
	route(mux, "/index-prices", s.handleIndexPrices)
	route(mux, "/hot-stocks", s.handleHotStocks)
	route(mux, "/sector-performance", s.handleSectorPerformance)
	mux.HandleFunc("/stock/", s.routeStock)
	route(mux, "/search-stocks", s.handleSearchStocks)
}

// routeStock dispatches /stock/{symbol}/ and /stock/{symbol}/chart.png.
func (s *Server) routeStock(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/stock/"), "/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	parts := strings.SplitN(path, "/", 2)
	symbol := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleStockDetail(w, r, symbol)
	case "chart.png":
		s.handleStockChart(w, r, symbol)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.app.Storage != nil {
		if err := s.app.Storage.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}
