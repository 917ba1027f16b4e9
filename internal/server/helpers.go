package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries a human-readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For /stock/{symbol}/chart.png, PathParam(r, "/stock/", "/chart.png")
// extracts the {symbol} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// writeServiceError maps a classified service error onto its HTTP status.
// Unclassified errors are logged and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, common.ErrNotFound):
		WriteError(w, http.StatusNotFound, common.Message(err))
	case errors.Is(err, common.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, common.Message(err))
	case errors.Is(err, common.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, common.Message(err))
	case errors.Is(err, common.ErrConflict):
		WriteError(w, http.StatusConflict, common.Message(err))
	case errors.Is(err, common.ErrUpstream):
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream provider failure")
		WriteError(w, http.StatusBadGateway, common.Message(err))
	default:
		s.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("correlation_id", common.CorrelationIDFromContext(r.Context())).
			Msg("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseTimeFrame reads the timeFrame query parameter. Empty means daily.
func parseTimeFrame(r *http.Request) (models.Granularity, error) {
	raw := r.URL.Query().Get("timeFrame")
	if strings.TrimSpace(raw) == "" {
		return models.GranularityDaily, nil
	}
	g, err := models.ParseGranularity(raw)
	if err != nil {
		return "", common.InvalidArgument(err.Error())
	}
	return g, nil
}

// parseCount reads an optional positive integer query parameter.
// Absent returns 0 so the service applies its default.
func parseCount(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, common.InvalidArgument(name + " must be a positive integer")
	}
	return n, nil
}
