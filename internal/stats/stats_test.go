package stats

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/mutual-dissent/internal/pricing"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

func intPtr(n int) *int { return &n }

func TestCompute_AggregatesPerModel(t *testing.T) {
	cache := pricing.NewCache(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tr := transcript.New("Q", "claude", []string{"claude", "gpt"}, 1)
	tr.Rounds = []transcript.DebateRound{
		{RoundNumber: 0, RoundType: transcript.RoundInitial, Responses: []transcript.ModelResponse{
			{ModelAlias: "claude", ModelID: "anthropic/claude-sonnet-4.5", InputTokens: intPtr(100), OutputTokens: intPtr(50), TokenCount: intPtr(150)},
			{ModelAlias: "gpt", ModelID: "openai/gpt-5.2", InputTokens: intPtr(80), OutputTokens: intPtr(40), TokenCount: intPtr(120)},
		}},
	}

	summary := Compute(tr, cache)
	require.Contains(t, summary.PerModel, "claude")
	assert.Equal(t, 1, summary.PerModel["claude"].Calls)
	assert.Equal(t, 150, summary.PerModel["claude"].Tokens)
	assert.Equal(t, 270, summary.TotalTokens)
	assert.Nil(t, summary.TotalCostUSD)
}

func TestCompute_TotalTokensIgnoresResponsesWithoutTokenCount(t *testing.T) {
	cache := pricing.NewCache(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tr := transcript.New("Q", "claude", []string{"claude"}, 1)
	tr.Rounds = []transcript.DebateRound{
		{RoundNumber: 0, RoundType: transcript.RoundInitial, Responses: []transcript.ModelResponse{
			// A vendor that reports a prompt/completion split but omits
			// total_tokens altogether should not contribute to total_tokens.
			{ModelAlias: "claude", ModelID: "anthropic/claude-sonnet-4.5", InputTokens: intPtr(100), OutputTokens: intPtr(50)},
		}},
	}

	summary := Compute(tr, cache)
	assert.Equal(t, 0, summary.TotalTokens)
	assert.Equal(t, 100, summary.PerModel["claude"].InputTokens)
	assert.Equal(t, 50, summary.PerModel["claude"].OutputTokens)
	assert.Equal(t, 0, summary.PerModel["claude"].Tokens)
}

func TestCompute_CostOnlyWhenPricingKnown(t *testing.T) {
	// Never prefetched, so no model has pricing.
	cache := pricing.NewCache(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tr := transcript.New("Q", "claude", []string{"claude"}, 1)
	tr.Rounds = []transcript.DebateRound{
		{RoundNumber: 0, RoundType: transcript.RoundInitial, Responses: []transcript.ModelResponse{
			{ModelAlias: "claude", ModelID: "anthropic/claude-sonnet-4.5", InputTokens: intPtr(100), OutputTokens: intPtr(50)},
		}},
	}

	summary := Compute(tr, cache)
	assert.Nil(t, summary.PerModel["claude"].CostUSD)
	assert.Nil(t, summary.TotalCostUSD)
}

func TestCompute_IncludesSynthesisResponse(t *testing.T) {
	cache := pricing.NewCache(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	tr := transcript.New("Q", "claude", []string{"claude"}, 1)
	tr.Synthesis = &transcript.ModelResponse{ModelAlias: "claude", ModelID: "anthropic/claude-sonnet-4.5", InputTokens: intPtr(10), OutputTokens: intPtr(5)}

	summary := Compute(tr, cache)
	require.Contains(t, summary.PerModel, "claude")
	assert.Equal(t, 1, summary.PerModel["claude"].Calls)
}
