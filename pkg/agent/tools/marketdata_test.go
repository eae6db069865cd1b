package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chartFixture renders a minimal provider chart payload.
func chartFixture(symbol string, price float64, closes []float64, highs []float64, lows []float64, volumes []int64) string {
	payload := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"meta": map[string]interface{}{
						"symbol":             symbol,
						"currency":           "USD",
						"regularMarketPrice": price,
					},
					"indicators": map[string]interface{}{
						"quote": []map[string]interface{}{
							{"close": closes, "high": highs, "low": lows, "volume": volumes},
						},
					},
				},
			},
		},
	}
	out, _ := json.Marshal(payload)
	return string(out)
}

func newChartServer(t *testing.T, fixtures map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for symbol, body := range fixtures {
			if r.URL.Path == "/v8/finance/chart/"+symbol {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
}

func TestMarketDataClient_Chart(t *testing.T) {
	server := newChartServer(t, map[string]string{
		"AAPL": chartFixture("AAPL", 150.25,
			[]float64{140, 145, 150.25},
			[]float64{141, 146, 151},
			[]float64{139, 143, 148},
			[]int64{1000, 2000, 3000}),
	})
	defer server.Close()

	client := NewMarketDataClient(server.URL, nil)
	data, err := client.Chart(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, "USD", data.Currency)
	assert.Equal(t, 150.25, data.LastPrice)
	assert.Equal(t, []float64{140, 145, 150.25}, data.Close)
}

func TestMarketDataClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, nil)
	_, err := client.Chart(context.Background(), "NOPE", "1mo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestMarketDataClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, nil)
	_, err := client.Chart(context.Background(), "AAPL", "1mo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestStockDataTool_AllInfo(t *testing.T) {
	server := newChartServer(t, map[string]string{
		"AAPL": chartFixture("AAPL", 150.25,
			[]float64{140, 145, 150.25},
			[]float64{141, 146, 151},
			[]float64{139, 143, 148},
			[]int64{1000, 2000, 3000}),
	})
	defer server.Close()

	tool := NewStockDataTool(NewMarketDataClient(server.URL, nil))
	out, err := tool.Call(context.Background(), map[string]interface{}{"symbol": "aapl"})
	require.NoError(t, err)

	assert.Contains(t, out, "Current Price (AAPL): $150.25")
	assert.Contains(t, out, "Symbol: AAPL")
	assert.Contains(t, out, "Currency: USD")
	assert.Contains(t, out, "Highest Price: $151.00")
	assert.Contains(t, out, "Lowest Price: $139.00")
	assert.Contains(t, out, "Average Volume: 2000")
}

func TestStockDataTool_PriceOnly(t *testing.T) {
	server := newChartServer(t, map[string]string{
		"TSLA": chartFixture("TSLA", 250.50, []float64{240, 250.50}, []float64{251}, []float64{239}, []int64{5000}),
	})
	defer server.Close()

	tool := NewStockDataTool(NewMarketDataClient(server.URL, nil))
	out, err := tool.Call(context.Background(), map[string]interface{}{
		"symbol":    "TSLA",
		"info_type": "price",
	})
	require.NoError(t, err)

	assert.Equal(t, "Current Price (TSLA): $250.50", out)
}

func TestStockDataTool_ArgumentValidation(t *testing.T) {
	tool := NewStockDataTool(NewMarketDataClient("http://localhost:1", nil))

	_, err := tool.Call(context.Background(), map[string]interface{}{})
	assert.ErrorContains(t, err, "symbol")

	_, err = tool.Call(context.Background(), map[string]interface{}{"symbol": "AAPL", "period": "7w"})
	assert.ErrorContains(t, err, "invalid period")

	_, err = tool.Call(context.Background(), map[string]interface{}{"symbol": "AAPL", "info_type": "everything"})
	assert.ErrorContains(t, err, "invalid info_type")
}

func TestCompareStocksTool_RanksByReturn(t *testing.T) {
	server := newChartServer(t, map[string]string{
		"AAPL": chartFixture("AAPL", 150, []float64{100, 150}, []float64{151}, []float64{99}, []int64{1}),
		"MSFT": chartFixture("MSFT", 110, []float64{100, 110}, []float64{111}, []float64{99}, []int64{1}),
		"GOOG": chartFixture("GOOG", 90, []float64{100, 90}, []float64{101}, []float64{89}, []int64{1}),
	})
	defer server.Close()

	tool := NewCompareStocksTool(NewMarketDataClient(server.URL, nil))
	out, err := tool.Call(context.Background(), map[string]interface{}{
		"symbols": "goog, msft, aapl",
		"period":  "3mo",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Stock Performance Comparison (3mo):")
	assert.Contains(t, out, "1. AAPL: 50.00%")
	assert.Contains(t, out, "2. MSFT: 10.00%")
	assert.Contains(t, out, "3. GOOG: -10.00%")
}

func TestCompareStocksTool_NoSymbols(t *testing.T) {
	tool := NewCompareStocksTool(NewMarketDataClient("http://localhost:1", nil))
	_, err := tool.Call(context.Background(), map[string]interface{}{"symbols": " , "})
	assert.ErrorContains(t, err, "no symbols")
}

func TestAnnualizedVolatility(t *testing.T) {
	// Constant prices have zero volatility.
	assert.Equal(t, 0.0, annualizedVolatility([]float64{100, 100, 100}))
	// Too little data reports zero rather than guessing.
	assert.Equal(t, 0.0, annualizedVolatility([]float64{100, 110}))
	// Varying prices produce a positive figure.
	assert.Greater(t, annualizedVolatility([]float64{100, 110, 95, 105}), 0.0)
}
