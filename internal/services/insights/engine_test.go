package insights

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() Input {
	return Input{
		Wallet:        "0x1234567890abcdef1234567890abcdef12345678",
		Network:       "mantle",
		DataSource:    "pipeline",
		TotalValueUSD: 1234.56,
		Holdings: []Holding{
			{Symbol: "MNT", ValueUSD: 800, PortfolioPct: 64.8},
			{Symbol: "mETH", ValueUSD: 300, PortfolioPct: 24.3},
			{Symbol: "USDC", ValueUSD: 100, PortfolioPct: 8.1},
			{Symbol: "MOE", ValueUSD: 34.56, PortfolioPct: 2.8},
		},
	}
}

func TestNewEngine(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("missing api key", func(t *testing.T) {
		engine, err := NewEngine("", "gpt-4o-mini", logger)
		require.ErrorIs(t, err, ErrAPIKeyNotSet)
		assert.Nil(t, engine)
	})

	t.Run("empty model falls back to default", func(t *testing.T) {
		engine, err := NewEngine("sk-test", "", logger)
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, engine.model)
	})

	t.Run("explicit model is kept", func(t *testing.T) {
		engine, err := NewEngine("sk-test", "gpt-4o", logger)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", engine.model)
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(testInput())

	assert.Contains(t, prompt, "You are Fluxo")
	assert.Contains(t, prompt, "0x1234567890abcdef1234567890abcdef12345678")
	assert.Contains(t, prompt, "NETWORK: mantle")
	assert.Contains(t, prompt, "TOTAL VALUE: $1234.56")
	assert.Contains(t, prompt, "DATA SOURCE: pipeline")

	// Only the top three holdings make it into the prompt.
	assert.Contains(t, prompt, "MNT")
	assert.Contains(t, prompt, "mETH")
	assert.Contains(t, prompt, "USDC")
	assert.NotContains(t, prompt, "MOE")

	assert.Contains(t, prompt, "Actionable Recommendations")
}

func TestBuildPrompt_NoHoldings(t *testing.T) {
	input := testInput()
	input.Holdings = nil

	prompt := buildPrompt(input)
	assert.NotContains(t, prompt, "Top Holdings")
}

func TestFallback(t *testing.T) {
	text := Fallback(testInput())

	assert.Contains(t, text, "4 position(s)")
	assert.Contains(t, text, "$1234.56")
	assert.Contains(t, text, "MNT")
	assert.Contains(t, text, "64.8%")
	assert.Contains(t, text, "currently unavailable")
}

func TestFallback_EmptyPortfolio(t *testing.T) {
	input := testInput()
	input.Holdings = nil
	input.TotalValueUSD = 0

	text := Fallback(input)
	assert.Contains(t, text, "0 position(s)")
	assert.NotContains(t, text, "Largest position")
}
