// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
// Valid is false for null, "", "NA" and "N/A".
type flexFloat64 struct {
	Value float64
	Valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	*f = flexFloat64{}
	if string(data) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64{Value: num, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" || s == "NA" || s == "N/A" {
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		*f = flexFloat64{Value: num, Valid: true}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

func (f flexFloat64) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexInt64 handles integer values that may arrive as strings.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var ff flexFloat64
	if err := ff.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt64(ff.Value)
	return nil
}

const (
	DefaultBaseURL         = "https://eodhd.com/api"
	DefaultTimeout         = 30 * time.Second
	DefaultRateLimit       = 10 // requests per second
	DefaultMaxRetries      = 2
	DefaultExchange        = "US"
	DefaultInitialInterval = 500 * time.Millisecond
)

// Client implements the EODHDClient interface
type Client struct {
	baseURL         string
	apiKey          string
	defaultExchange string
	httpClient      *http.Client
	logger          *common.Logger
	limiter         *rate.Limiter
	maxRetries      int
	initialInterval time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries bounds the retries of transient failures. Zero disables retry.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.initialInterval = d
	}
}

// WithDefaultExchange sets the exchange suffix added to bare tickers.
func WithDefaultExchange(exchange string) ClientOption {
	return func(c *Client) {
		if exchange != "" {
			c.defaultExchange = strings.ToUpper(exchange)
		}
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		apiKey:          apiKey,
		defaultExchange: DefaultExchange,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:         rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:          common.NewSilentLogger(),
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultInitialInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [clients.eodhd] section.
func NewClientFromConfig(cfg common.EODHDConfig, logger *common.Logger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithRateLimit(cfg.RateLimit),
		WithTimeout(cfg.GetTimeout()),
		WithMaxRetries(cfg.MaxRetries),
		WithDefaultExchange(cfg.DefaultExchange),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(cfg.APIKey, opts...)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Temporary reports whether the request may succeed on retry.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NormalizeTicker uppercases a ticker and appends the exchange suffix when
// it has none.
func NormalizeTicker(ticker, exchange string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || strings.Contains(t, ".") {
		return t
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	return t + "." + strings.ToUpper(exchange)
}

func (c *Client) ticker(t string) string {
	return NormalizeTicker(t, c.defaultExchange)
}

// get performs a rate-limited GET request, retrying transient failures
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	attempt := 0
	operation := func() error {
		attempt++

		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		c.logger.Debug().Str("url", c.baseURL+path).Int("attempt", attempt).Msg("EODHD API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("failed to execute request: %w", err))
			}
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
				Endpoint:   path,
			}
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("endpoint", path).Dur("wait", wait).Msg("EODHD request failed, retrying")
	}

	return backoff.RetryNotify(operation, b, notify)
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// GetEOD retrieves end-of-day price data
func (c *Client) GetEOD(ctx context.Context, ticker string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	params := &interfaces.EODParams{
		Period: "d",
		Order:  "d", // descending (most recent first)
	}

	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("period", params.Period)
	urlParams.Set("order", params.Order)

	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	path := fmt.Sprintf("/eod/%s", url.PathEscape(c.ticker(ticker)))

	var bars []eodBarResponse
	if err := c.get(ctx, path, urlParams, &bars); err != nil {
		return nil, err
	}

	result := &models.EODResponse{
		Data: make([]models.EODBar, 0, len(bars)),
	}

	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			continue
		}
		result.Data = append(result.Data, models.EODBar{
			Date:     date,
			Open:     bar.Open.Value,
			High:     bar.High.Value,
			Low:      bar.Low.Value,
			Close:    bar.Close.Value,
			AdjClose: bar.AdjustedClose.Value,
			Volume:   int64(bar.Volume),
		})
	}

	// Limit keeps the most recent bars regardless of order
	if params.Limit > 0 && len(result.Data) > params.Limit {
		if params.Order == "a" {
			result.Data = result.Data[len(result.Data)-params.Limit:]
		} else {
			result.Data = result.Data[:params.Limit]
		}
	}

	return result, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexInt64   `json:"volume"`
}

// GetFundamentals retrieves company metadata
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.CompanyMetadata, error) {
	normalized := c.ticker(ticker)
	path := fmt.Sprintf("/fundamentals/%s", url.PathEscape(normalized))

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	logo := resp.General.LogoURL
	if strings.HasPrefix(logo, "/") {
		logo = "https://eodhd.com" + logo
	}

	meta := &models.CompanyMetadata{
		Ticker:        normalized,
		Name:          resp.General.Name,
		Exchange:      resp.General.Exchange,
		Currency:      resp.General.CurrencyCode,
		Country:       resp.General.CountryName,
		Sector:        resp.General.Sector,
		Industry:      resp.General.Industry,
		Description:   resp.General.Description,
		WebURL:        resp.General.WebURL,
		LogoURL:       logo,
		MarketCap:     resp.Highlights.MarketCapitalization.ptr(),
		PE:            resp.Highlights.PERatio.ptr(),
		EPS:           resp.Highlights.EarningsShare.ptr(),
		DividendYield: resp.Highlights.DividendYield.ptr(),
		Beta:          resp.Technicals.Beta.ptr(),
		High52Week:    resp.Technicals.High52Week.ptr(),
		Low52Week:     resp.Technicals.Low52Week.ptr(),
	}
	if resp.General.FullTimeEmployees.Valid {
		n := int64(resp.General.FullTimeEmployees.Value)
		meta.Employees = &n
	}

	return meta, nil
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code              string      `json:"Code"`
		Name              string      `json:"Name"`
		Type              string      `json:"Type"`
		Exchange          string      `json:"Exchange"`
		CurrencyCode      string      `json:"CurrencyCode"`
		CountryName       string      `json:"CountryName"`
		Sector            string      `json:"Sector"`
		Industry          string      `json:"Industry"`
		Description       string      `json:"Description"`
		WebURL            string      `json:"WebURL"`
		LogoURL           string      `json:"LogoURL"`
		FullTimeEmployees flexFloat64 `json:"FullTimeEmployees"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization flexFloat64 `json:"MarketCapitalization"`
		PERatio              flexFloat64 `json:"PERatio"`
		EarningsShare        flexFloat64 `json:"EarningsShare"`
		DividendYield        flexFloat64 `json:"DividendYield"`
	} `json:"Highlights"`
	Technicals struct {
		Beta       flexFloat64 `json:"Beta"`
		High52Week flexFloat64 `json:"52WeekHigh"`
		Low52Week  flexFloat64 `json:"52WeekLow"`
	} `json:"Technicals"`
}

// GetTechnicals retrieves a technical indicator series, most recent first.
// params carries function-specific settings such as "period".
func (c *Client) GetTechnicals(ctx context.Context, ticker, function string, params map[string]string) ([]models.IndicatorPoint, error) {
	path := fmt.Sprintf("/technical/%s", url.PathEscape(c.ticker(ticker)))

	q := url.Values{}
	q.Set("function", function)
	q.Set("order", "d")
	for k, v := range params {
		q.Set(k, v)
	}

	var rows []map[string]json.RawMessage
	if err := c.get(ctx, path, q, &rows); err != nil {
		return nil, err
	}

	points := make([]models.IndicatorPoint, 0, len(rows))
	for _, row := range rows {
		var date string
		if raw, ok := row["date"]; ok {
			_ = json.Unmarshal(raw, &date)
		}
		values := make(map[string]float64, len(row))
		for k, raw := range row {
			if k == "date" {
				continue
			}
			var f flexFloat64
			if err := f.UnmarshalJSON(raw); err != nil || !f.Valid {
				continue
			}
			values[k] = f.Value
		}
		points = append(points, models.IndicatorPoint{Date: date, Values: values})
	}

	return points, nil
}

// Search looks up symbols by code or company name
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows []searchResponse
	if err := c.get(ctx, "/search/"+url.PathEscape(query), params, &rows); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, models.SearchResult{
			Symbol:   r.Code,
			Name:     r.Name,
			Region:   r.Country,
			Exchange: r.Exchange,
			Type:     r.Type,
		})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

type searchResponse struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Type     string `json:"Type"`
	Country  string `json:"Country"`
	Currency string `json:"Currency"`
}

// Ensure Client implements EODHDClient
var _ interfaces.EODHDClient = (*Client)(nil)
