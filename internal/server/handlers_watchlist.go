package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/fleece/internal/common"
)

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

// handleWatchlistList handles GET /watchlist/.
func (s *Server) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	entries, err := s.app.WatchlistService.List(r.Context(), common.ResolveUserID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

// handleWatchlistAdd handles POST /watchlist/add/. Re-adding a symbol is a
// no-op reported with 200.
func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req watchlistRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	entry, created, err := s.app.WatchlistService.Add(r.Context(), common.ResolveUserID(r.Context()), req.Symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !created {
		WriteJSON(w, http.StatusOK, MessageResponse{Message: "Symbol already in watchlist"})
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

// handleWatchlistRemove handles DELETE /watchlist/remove/.
func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	var req watchlistRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.app.WatchlistService.Remove(r.Context(), common.ResolveUserID(r.Context()), req.Symbol); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	WriteJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Removed %s from watchlist", symbol)})
}
