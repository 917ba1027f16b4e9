package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fleece/internal/app"
	"github.com/bobmcallan/fleece/internal/clients/eodhd"
	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/server"
	"github.com/bobmcallan/fleece/internal/storage"
	tcommon "github.com/bobmcallan/fleece/tests/common"
)

var predictionSeed = []string{
	`INSERT INTO "PredsDaily" ("symbol","date","pred","pred_sign","sector","pred_open","pred_close") VALUES ('AAPL','2024-03-28',1.2345,1,'Technology',0.01,0.05)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('MSFT','2024-03-28','Technology',0.08)`,
	`INSERT INTO "PredsDaily" ("symbol","date","sector","pred_close") VALUES ('XOM','2024-03-28','Energy',-0.03)`,
	`INSERT INTO "AccuracyDaily" ("symbol","backtest_accuracy","live_accuracy","sector") VALUES ('AAPL',0.61,0.58,'Information Technology')`,
	`INSERT INTO "MonthlyGrades" ("symbol","date","grade_sign","grade_class") VALUES ('AAPL','2024-03-01',1,'Strong Buy')`,
}

// Env runs the full server in-process against a SurrealDB container, a
// seeded SQLite prediction file and a stub quote provider.
type Env struct {
	t          *testing.T
	Server     *httptest.Server
	Provider   *httptest.Server
	App        *app.App
	ResultsDir string
}

// NewEnv builds an isolated environment. Tests are skipped unless
// FLEECE_TEST_DOCKER=true.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	predPath := filepath.Join(t.TempDir(), "predictions.db")
	seedDB, err := sql.Open("sqlite", predPath)
	require.NoError(t, err)
	require.NoError(t, tcommon.CreatePredictionSchema(ctx, seedDB, predictionSeed...))
	seedDB.Close()

	provider := httptest.NewServer(http.HandlerFunc(stubProvider))

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Predictions.Driver = "sqlite"
	cfg.Storage.Predictions.DSN = predPath
	cfg.Storage.Accounts.Address = sc.Address()
	cfg.Storage.Accounts.Namespace = tcommon.SurrealNamespace
	cfg.Storage.Accounts.Database = sc.DatabaseName(t)
	cfg.Storage.Accounts.Username = tcommon.SurrealUser
	cfg.Storage.Accounts.Password = tcommon.SurrealPassword
	cfg.Clients.EODHD.BaseURL = provider.URL
	cfg.Clients.EODHD.APIKey = "test-key"
	cfg.Clients.EODHD.MaxRetries = 0
	cfg.Clients.EODHD.RateLimit = 100
	cfg.Market.HotStocks = []string{"AAPL", "MSFT"}

	logger := common.NewSilentLogger()
	mgr, err := storage.NewManager(ctx, logger, cfg)
	require.NoError(t, err)

	a := app.New(cfg, logger, mgr, eodhd.NewClientFromConfig(cfg.Clients.EODHD, logger))
	srv := server.NewServer(a)

	env := &Env{
		t:          t,
		Server:     httptest.NewServer(srv.Handler()),
		Provider:   provider,
		App:        a,
		ResultsDir: tcommon.ResultsDir(t),
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup stops both HTTP servers and closes storage.
func (e *Env) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
		e.Server = nil
	}
	if e.Provider != nil {
		e.Provider.Close()
		e.Provider = nil
	}
	if e.App != nil {
		e.App.Close()
		e.App = nil
	}
}

// Do sends a JSON request, optionally with a bearer token.
func (e *Env) Do(method, path string, body interface{}, token string) *http.Response {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	return resp
}

// DecodeJSON decodes and closes the response body.
func DecodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// SaveResult writes raw output next to the test results.
func (e *Env) SaveResult(name string, data []byte) {
	if err := os.WriteFile(filepath.Join(e.ResultsDir, name), data, 0644); err != nil {
		e.t.Logf("Warning: failed to save %s: %v", name, err)
	}
}

// stubProvider imitates the quote provider endpoints the server uses.
// Fundamentals and technicals are absent so those sections degrade.
func stubProvider(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/real-time/"):
		tickers := []string{strings.TrimPrefix(path, "/real-time/")}
		if s := r.URL.Query().Get("s"); s != "" {
			tickers = append(tickers, strings.Split(s, ",")...)
		}
		quotes := make([]map[string]any, 0, len(tickers))
		for i, tk := range tickers {
			price := 100.0 + float64(i)*10
			quotes = append(quotes, map[string]any{
				"code":          tk,
				"timestamp":     1711656000,
				"open":          price - 1,
				"high":          price + 1,
				"low":           price - 2,
				"close":         price,
				"previousClose": price - float64(i+1),
				"change":        float64(i + 1),
				"change_p":      float64(i+1) / (price - float64(i+1)) * 100,
				"volume":        1000000,
			})
		}
		if len(quotes) == 1 && r.URL.Query().Get("s") == "" {
			json.NewEncoder(w).Encode(quotes[0])
			return
		}
		json.NewEncoder(w).Encode(quotes)

	case strings.HasPrefix(path, "/eod/"):
		end := time.Now().UTC().Truncate(24 * time.Hour)
		bars := make([]map[string]any, 0, 260)
		for i := 259; i >= 0; i-- {
			d := end.AddDate(0, 0, -i)
			c := 150.0 + float64(260-i)*0.1
			bars = append(bars, map[string]any{
				"date":           d.Format("2006-01-02"),
				"open":           c - 0.5,
				"high":           c + 1,
				"low":            c - 1,
				"close":          c,
				"adjusted_close": c,
				"volume":         5000000,
			})
		}
		if r.URL.Query().Get("order") == "d" {
			for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
				bars[i], bars[j] = bars[j], bars[i]
			}
		}
		json.NewEncoder(w).Encode(bars)

	case strings.HasPrefix(path, "/search/"):
		json.NewEncoder(w).Encode([]map[string]any{
			{"Code": "AAPL", "Exchange": "US", "Name": "Apple Inc", "Type": "Common Stock", "Country": "USA", "Currency": "USD"},
			{"Code": "APLE", "Exchange": "US", "Name": "Apple Hospitality REIT", "Type": "Common Stock", "Country": "USA", "Currency": "USD"},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}
}
