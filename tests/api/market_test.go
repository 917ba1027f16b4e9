package api

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketOverview(t *testing.T) {
	env := NewEnv(t)

	resp := env.Do(http.MethodGet, "/index-prices/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	indices := DecodeJSON[map[string]map[string]any](t, resp)
	for _, key := range []string{"dow", "snp", "nasdaq"} {
		require.Contains(t, indices, key)
		assert.NotNil(t, indices[key]["price"], key)
	}

	resp = env.Do(http.MethodGet, "/hot-stocks/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hot := DecodeJSON[[]map[string]any](t, resp)
	require.Len(t, hot, 2)
	assert.Equal(t, float64(1), hot[0]["rank"])
	assert.GreaterOrEqual(t, hot[0]["change_pct"].(float64), hot[1]["change_pct"].(float64))

	resp = env.Do(http.MethodGet, "/sector-performance/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sectors := DecodeJSON[[]map[string]any](t, resp)
	assert.Len(t, sectors, 10)
}

func TestStockDetailDegradesWithoutFundamentals(t *testing.T) {
	env := NewEnv(t)

	resp := env.Do(http.MethodGet, "/stock/AAPL/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := DecodeJSON[map[string]any](t, resp)

	assert.Equal(t, "AAPL", detail["symbol"])
	assert.Nil(t, detail["company"])
	history := detail["history"].([]any)
	assert.NotEmpty(t, history)

	indicators := detail["indicators"].(map[string]any)
	assert.NotNil(t, indicators["sma_50"], "computed locally when the provider has none")

	grade := detail["grade"].(map[string]any)
	assert.Equal(t, "Strong Buy", grade["grade_class"])
}

func TestStockChart(t *testing.T) {
	env := NewEnv(t)

	resp := env.Do(http.MethodGet, "/stock/AAPL/chart.png", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "\x89PNG", string(data[:4]))
	env.SaveResult("aapl_chart.png", data)
}

func TestSearchStocks(t *testing.T) {
	env := NewEnv(t)

	resp := env.Do(http.MethodGet, "/search-stocks/?query=", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := DecodeJSON[[]map[string]any](t, resp)
	assert.Empty(t, empty)

	resp = env.Do(http.MethodGet, "/search-stocks/?query=apple", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := DecodeJSON[[]map[string]any](t, resp)
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0]["symbol"])
	assert.Equal(t, "USA", results[0]["region"])
}
