package server

import (
	"net/http"
	"strconv"
)

// handleIndexPrices handles GET /index-prices/. Failed indices carry a
// placeholder rather than failing the request.
func (s *Server) handleIndexPrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.QuoteService.IndexPrices(r.Context()))
}

// handleHotStocks handles GET /hot-stocks/.
func (s *Server) handleHotStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stocks, err := s.app.QuoteService.HotStocks(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stocks)
}

// handleSectorPerformance handles GET /sector-performance/.
func (s *Server) handleSectorPerformance(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.QuoteService.SectorPerformance(r.Context()))
}

// handleStockDetail handles GET /stock/{symbol}/.
func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	detail, err := s.app.MarketService.StockDetail(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// handleStockChart handles GET /stock/{symbol}/chart.png.
func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.MarketService.PriceChart(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleSearchStocks handles GET /search-stocks/?query=.
func (s *Server) handleSearchStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	results, err := s.app.MarketService.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}
