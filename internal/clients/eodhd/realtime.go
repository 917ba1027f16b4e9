package eodhd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/fleece/internal/models"
)

// realTimeResponse is one quote from /real-time. Numeric fields arrive as
// numbers, strings or "NA" depending on the market state.
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexInt64   `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangePct     flexFloat64 `json:"change_p"`
	Volume        flexInt64   `json:"volume"`
}

func (r realTimeResponse) toModel() *models.RealTimeQuote {
	q := &models.RealTimeQuote{
		Code:          r.Code,
		Open:          r.Open.Value,
		High:          r.High.Value,
		Low:           r.Low.Value,
		Close:         r.Close.Value,
		PreviousClose: r.PreviousClose.Value,
		Change:        r.Change.Value,
		ChangePct:     r.ChangePct.Value,
		HasChange:     r.Change.Valid && r.ChangePct.Valid,
		Volume:        int64(r.Volume),
	}
	if r.Timestamp > 0 {
		q.Timestamp = time.Unix(int64(r.Timestamp), 0)
	}
	return q
}

// GetRealTimeQuote retrieves the live quote for one ticker
func (c *Client) GetRealTimeQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error) {
	path := fmt.Sprintf("/real-time/%s", url.PathEscape(c.ticker(ticker)))

	var resp realTimeResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// GetBulkRealTimeQuotes retrieves live quotes for several tickers in a
// single request: the first ticker goes in the path, the rest in "s".
// Quotes are returned in provider order.
func (c *Client) GetBulkRealTimeQuotes(ctx context.Context, tickers []string) ([]*models.RealTimeQuote, error) {
	if len(tickers) == 0 {
		return []*models.RealTimeQuote{}, nil
	}

	normalized := make([]string, len(tickers))
	for i, t := range tickers {
		normalized[i] = c.ticker(t)
	}

	path := fmt.Sprintf("/real-time/%s", url.PathEscape(normalized[0]))
	var params url.Values
	if len(normalized) > 1 {
		params = url.Values{}
		params.Set("s", strings.Join(normalized[1:], ","))
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, err
	}

	// A single ticker comes back as an object rather than an array
	var rows []realTimeResponse
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one realTimeResponse
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("failed to decode real-time quote: %w", err)
		}
		rows = []realTimeResponse{one}
	} else if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode real-time quotes: %w", err)
	}

	quotes := make([]*models.RealTimeQuote, 0, len(rows))
	for _, r := range rows {
		quotes = append(quotes, r.toModel())
	}
	return quotes, nil
}
