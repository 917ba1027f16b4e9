package server

import (
	"net/http"
	"strings"
)

// handlePredictionDetail handles GET /prediction/{symbol}/?timeFrame=.
func (s *Server) handlePredictionDetail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/prediction/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}
	if extra := strings.Trim(strings.TrimPrefix(r.URL.Path, "/prediction/"+symbol), "/"); extra != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	g, err := parseTimeFrame(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	detail, err := s.app.PredictionService.PredictionDetail(r.Context(), symbol, g)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// handleTopPredictions handles GET /top-predictions/?timeFrame=&count=.
func (s *Server) handleTopPredictions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	g, err := parseTimeFrame(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	count, err := parseCount(r, "count")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records, err := s.app.PredictionService.TopPredictions(r.Context(), g, count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}

// handleAllPredictions handles GET /all-predictions/?timeFrame=.
func (s *Server) handleAllPredictions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	g, err := parseTimeFrame(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records, err := s.app.PredictionService.AllPredictions(r.Context(), g)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
