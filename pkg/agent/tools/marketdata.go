package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// DefaultMarketDataURL is the public quote endpoint used when no override
// is configured.
const DefaultMarketDataURL = "https://query1.finance.yahoo.com"

var validPeriods = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// MarketDataClient fetches quote and history data over HTTP.
type MarketDataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMarketDataClient creates a client against the given base URL. An empty
// base URL selects the public default.
func NewMarketDataClient(baseURL string, httpClient *http.Client) *MarketDataClient {
	if baseURL == "" {
		baseURL = DefaultMarketDataURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &MarketDataClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ChartData is the subset of the chart response the tools consume.
type ChartData struct {
	Symbol    string
	Currency  string
	LastPrice float64
	Close     []float64
	High      []float64
	Low       []float64
	Volume    []int64
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close  []float64 `json:"close"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Chart fetches price history for one symbol over the given period.
func (c *MarketDataClient) Chart(ctx context.Context, symbol, period string) (*ChartData, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution, "failed to build market data request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution, "market data request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.New(apperrors.ErrCodeToolExecution,
			fmt.Sprintf("market data provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution, "failed to decode market data response", err)
	}

	if parsed.Chart.Error != nil {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution,
			fmt.Sprintf("market data provider error: %s", parsed.Chart.Error.Description), nil)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeToolExecution,
			fmt.Sprintf("no market data for symbol %s", symbol), nil)
	}

	result := parsed.Chart.Result[0]
	data := &ChartData{
		Symbol:    result.Meta.Symbol,
		Currency:  result.Meta.Currency,
		LastPrice: result.Meta.RegularMarketPrice,
	}
	if len(result.Indicators.Quote) > 0 {
		quote := result.Indicators.Quote[0]
		data.Close = compactFloats(quote.Close)
		data.High = compactFloats(quote.High)
		data.Low = compactFloats(quote.Low)
		data.Volume = quote.Volume
	}

	return data, nil
}

// compactFloats drops NaN/zero gap entries the provider emits for holidays.
func compactFloats(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// StockDataTool fetches a quote, company summary, and history metrics for
// one ticker symbol.
type StockDataTool struct {
	BaseTool
	client *MarketDataClient
}

// NewStockDataTool creates the get_stock_data tool.
func NewStockDataTool(client *MarketDataClient) *StockDataTool {
	return &StockDataTool{
		BaseTool: NewBaseTool("get_stock_data",
			"Fetch stock data for a ticker symbol: current price, company info, and historical metrics."),
		client: client,
	}
}

// Schema returns the JSON Schema for the tool's arguments.
func (t *StockDataTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"symbol": map[string]interface{}{
				"type":        "string",
				"description": "Stock ticker symbol (e.g. 'AAPL', 'GOOGL', 'TSLA')",
			},
			"period": map[string]interface{}{
				"type":        "string",
				"description": "Time period for historical data",
				"enum":        []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"},
			},
			"info_type": map[string]interface{}{
				"type":        "string",
				"description": "Type of information to return",
				"enum":        []string{"price", "info", "history", "all"},
			},
		},
		"required": []string{"symbol"},
	}
}

// Call executes the tool.
func (t *StockDataTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	symbol, err := requiredStringArg(args, "symbol")
	if err != nil {
		return "", err
	}
	symbol = strings.ToUpper(symbol)

	period := optionalStringArg(args, "period", "1mo")
	if !validPeriods[period] {
		return "", fmt.Errorf("invalid period %q", period)
	}

	infoType := optionalStringArg(args, "info_type", "all")
	switch infoType {
	case "price", "info", "history", "all":
	default:
		return "", fmt.Errorf("invalid info_type %q", infoType)
	}

	data, err := t.client.Chart(ctx, symbol, period)
	if err != nil {
		return "", err
	}

	var lines []string

	if infoType == "price" || infoType == "all" {
		lines = append(lines, fmt.Sprintf("Current Price (%s): $%.2f", symbol, data.LastPrice))
	}

	if infoType == "info" || infoType == "all" {
		lines = append(lines, fmt.Sprintf("Symbol: %s", data.Symbol))
		if data.Currency != "" {
			lines = append(lines, fmt.Sprintf("Currency: %s", data.Currency))
		}
	}

	if (infoType == "history" || infoType == "all") && len(data.Close) > 0 {
		lines = append(lines, fmt.Sprintf("\nHistorical Data (%s):", period))
		lines = append(lines, fmt.Sprintf("Highest Price: $%.2f", maxFloat(data.High)))
		lines = append(lines, fmt.Sprintf("Lowest Price: $%.2f", minFloat(data.Low)))
		if avg := avgVolume(data.Volume); avg > 0 {
			lines = append(lines, fmt.Sprintf("Average Volume: %.0f", avg))
		}
		if vol := annualizedVolatility(data.Close); vol > 0 {
			lines = append(lines, fmt.Sprintf("Annualized Volatility: %.2f%%", vol*100))
		}
	}

	return strings.Join(lines, "\n"), nil
}

// CompareStocksTool compares the performance of multiple symbols over a
// period, sorted best to worst.
type CompareStocksTool struct {
	BaseTool
	client *MarketDataClient
}

// NewCompareStocksTool creates the compare_stocks tool.
func NewCompareStocksTool(client *MarketDataClient) *CompareStocksTool {
	return &CompareStocksTool{
		BaseTool: NewBaseTool("compare_stocks",
			"Compare performance of multiple stocks over a period, ranked by total return."),
		client: client,
	}
}

// Schema returns the JSON Schema for the tool's arguments.
func (t *CompareStocksTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"symbols": map[string]interface{}{
				"type":        "string",
				"description": "Comma-separated stock symbols (e.g. 'AAPL,GOOGL,MSFT')",
			},
			"period": map[string]interface{}{
				"type":        "string",
				"description": "Time period for comparison",
				"enum":        []string{"1mo", "3mo", "6mo", "1y", "2y"},
			},
		},
		"required": []string{"symbols"},
	}
}

type stockPerformance struct {
	symbol      string
	startPrice  float64
	endPrice    float64
	totalReturn float64
}

// Call executes the tool.
func (t *CompareStocksTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	raw, err := requiredStringArg(args, "symbols")
	if err != nil {
		return "", err
	}

	period := optionalStringArg(args, "period", "3mo")
	if !validPeriods[period] {
		return "", fmt.Errorf("invalid period %q", period)
	}

	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return "", fmt.Errorf("no symbols provided")
	}

	var results []stockPerformance
	for _, symbol := range symbols {
		data, err := t.client.Chart(ctx, symbol, period)
		if err != nil {
			return "", err
		}
		if len(data.Close) < 2 {
			continue
		}
		start := data.Close[0]
		end := data.Close[len(data.Close)-1]
		results = append(results, stockPerformance{
			symbol:      symbol,
			startPrice:  start,
			endPrice:    end,
			totalReturn: (end - start) / start * 100,
		})
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no price history available for %s", raw)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].totalReturn > results[j].totalReturn
	})

	lines := []string{fmt.Sprintf("Stock Performance Comparison (%s):", period)}
	for i, stock := range results {
		lines = append(lines, fmt.Sprintf("%d. %s: %.2f%% ($%.2f → $%.2f)",
			i+1, stock.symbol, stock.totalReturn, stock.startPrice, stock.endPrice))
	}

	return strings.Join(lines, "\n"), nil
}

func requiredStringArg(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	str, ok := value.(string)
	if !ok || strings.TrimSpace(str) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return strings.TrimSpace(str), nil
}

func optionalStringArg(args map[string]interface{}, key, fallback string) string {
	if value, ok := args[key]; ok {
		if str, ok := value.(string); ok && strings.TrimSpace(str) != "" {
			return strings.TrimSpace(str)
		}
	}
	return fallback
}

func maxFloat(values []float64) float64 {
	out := 0.0
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	return out
}

func minFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func avgVolume(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	var n int
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// annualizedVolatility computes the annualized standard deviation of daily
// returns (252 trading days).
func annualizedVolatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance) * math.Sqrt(252)
}
