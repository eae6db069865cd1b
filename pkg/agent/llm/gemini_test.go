package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestConvertGeminiCall_SynthesizesUniqueIDs(t *testing.T) {
	first := convertGeminiCall(&genai.FunctionCall{
		Name: "get_stock_data",
		Args: map[string]interface{}{"symbol": "AAPL"},
	})
	second := convertGeminiCall(&genai.FunctionCall{
		Name: "get_stock_data",
		Args: map[string]interface{}{"symbol": "MSFT"},
	})

	assert.Equal(t, "get_stock_data", first.Name)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConvertGeminiCall_KeepsProvidedID(t *testing.T) {
	call := convertGeminiCall(&genai.FunctionCall{
		ID:   "fc-123",
		Name: "compare_stocks",
		Args: map[string]interface{}{"symbols": "AAPL,MSFT"},
	})

	assert.Equal(t, "fc-123", call.ID)
	assert.Equal(t, "AAPL,MSFT", call.Arguments["symbols"])
}
