package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/fleece/internal/app"
	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

// --- storage ---

type mockStorage struct {
	pingErr error
}

func (m *mockStorage) PredictionStore() interfaces.PredictionStore { return nil }
func (m *mockStorage) UserStore() interfaces.UserStore             { return nil }
func (m *mockStorage) WatchlistStore() interfaces.WatchlistStore   { return nil }
func (m *mockStorage) Ping(ctx context.Context) error              { return m.pingErr }
func (m *mockStorage) Close() error                                { return nil }

// --- predictions ---

type mockPredictionService struct {
	detail    map[string]any
	detailErr error
	records   []*models.PredictionRecord
	listErr   error

	gotSymbol string
	gotG      models.Granularity
	gotCount  int
}

func (m *mockPredictionService) PredictionDetail(ctx context.Context, symbol string, g models.Granularity) (map[string]any, error) {
	m.gotSymbol, m.gotG = symbol, g
	return m.detail, m.detailErr
}

func (m *mockPredictionService) TopPredictions(ctx context.Context, g models.Granularity, count int) ([]*models.PredictionRecord, error) {
	m.gotG, m.gotCount = g, count
	return m.records, m.listErr
}

func (m *mockPredictionService) AllPredictions(ctx context.Context, g models.Granularity) ([]*models.PredictionRecord, error) {
	m.gotG = g
	return m.records, m.listErr
}

func (m *mockPredictionService) PredictedChange(ctx context.Context, symbol string) (*float64, error) {
	return nil, nil
}

// --- quotes ---

type mockQuoteService struct {
	indices map[string]models.IndexPrice
	hot     []models.HotStock
	hotErr  error
	sectors []models.SectorPerformance
}

func (m *mockQuoteService) Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error) {
	return nil, common.Upstream(nil)
}

func (m *mockQuoteService) LastTwoCloses(ctx context.Context, ticker string) (latest, previous *float64) {
	return nil, nil
}

func (m *mockQuoteService) IndexPrices(ctx context.Context) map[string]models.IndexPrice {
	return m.indices
}

func (m *mockQuoteService) HotStocks(ctx context.Context) ([]models.HotStock, error) {
	return m.hot, m.hotErr
}

func (m *mockQuoteService) SectorPerformance(ctx context.Context) []models.SectorPerformance {
	return m.sectors
}

// --- market ---

type mockMarketService struct {
	detail    *models.StockDetail
	detailErr error
	results   []models.SearchResult
	searchErr error
	chart     []byte
	chartErr  error

	gotSymbol string
	gotQuery  string
}

func (m *mockMarketService) StockDetail(ctx context.Context, symbol string) (*models.StockDetail, error) {
	m.gotSymbol = symbol
	return m.detail, m.detailErr
}

func (m *mockMarketService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	m.gotQuery = query
	return m.results, m.searchErr
}

func (m *mockMarketService) PriceChart(ctx context.Context, symbol string) ([]byte, error) {
	m.gotSymbol = symbol
	return m.chart, m.chartErr
}

// --- accounts ---

const testAccessToken = "valid-access-token"

type mockAccountService struct {
	registerErr error
	tokens      *models.TokenPair
	loginErr    error
	access      string
	refreshErr  error
	authErr     error

	gotUsername string
	gotEmail    string
}

func (m *mockAccountService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	m.gotUsername, m.gotEmail = username, email
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.User{Username: username, Email: email}, nil
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	m.gotEmail = email
	return m.tokens, m.loginErr
}

func (m *mockAccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.access, m.refreshErr
}

func (m *mockAccountService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if m.authErr != nil {
		return nil, m.authErr
	}
	if accessToken != testAccessToken {
		return nil, common.Unauthorized("Token is invalid or expired")
	}
	return &models.User{Username: "alice", Email: "alice@example.com"}, nil
}

// --- watchlist ---

type mockWatchlistService struct {
	entries map[string][]*models.WatchlistEntry
}

func newMockWatchlistService() *mockWatchlistService {
	return &mockWatchlistService{entries: make(map[string][]*models.WatchlistEntry)}
}

func (m *mockWatchlistService) List(ctx context.Context, userID string) ([]*models.WatchlistEntry, error) {
	out := m.entries[userID]
	if out == nil {
		out = []*models.WatchlistEntry{}
	}
	return out, nil
}

func (m *mockWatchlistService) Add(ctx context.Context, userID, symbol string) (*models.WatchlistEntry, bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, false, common.InvalidArgument("Symbol is required")
	}
	for _, e := range m.entries[userID] {
		if e.Symbol == symbol {
			return e, false, nil
		}
	}
	e := &models.WatchlistEntry{ID: "id-" + symbol, UserID: userID, Symbol: symbol}
	m.entries[userID] = append([]*models.WatchlistEntry{e}, m.entries[userID]...)
	return e, true, nil
}

func (m *mockWatchlistService) Remove(ctx context.Context, userID, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return common.InvalidArgument("Symbol is required")
	}
	list := m.entries[userID]
	for i, e := range list {
		if e.Symbol == symbol {
			m.entries[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return &common.ClassError{Class: common.ErrNotFound, Message: "Symbol not found in watchlist"}
}

// --- harness ---

type testServices struct {
	storage     *mockStorage
	predictions *mockPredictionService
	quotes      *mockQuoteService
	market      *mockMarketService
	accounts    *mockAccountService
	watchlist   *mockWatchlistService
}

func newTestServer(t *testing.T) (*Server, *testServices) {
	t.Helper()
	logger := common.NewSilentLogger()
	svc := &testServices{
		storage:     &mockStorage{},
		predictions: &mockPredictionService{},
		quotes:      &mockQuoteService{},
		market:      &mockMarketService{},
		accounts:    &mockAccountService{},
		watchlist:   newMockWatchlistService(),
	}
	a := &app.App{
		Config:            common.NewDefaultConfig(),
		Logger:            logger,
		Storage:           svc.storage,
		PredictionService: svc.predictions,
		QuoteService:      svc.quotes,
		MarketService:     svc.market,
		AccountService:    svc.accounts,
		WatchlistService:  svc.watchlist,
	}
	return &Server{app: a, logger: logger}, svc
}

// serve runs req through the full routed and middleware-wrapped handler.
func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.buildHandler().ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return bytes.NewBuffer(data)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
