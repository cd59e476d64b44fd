// Package stats aggregates per-model token and cost totals across a
// completed debate.
package stats

import (
	"github.com/mihaisavezi/mutual-dissent/internal/pricing"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

// PerModel holds one panelist's (or the synthesizer's) usage across every
// round it participated in.
type PerModel struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	Tokens       int
	CostUSD      *float64
}

// Summary is the full-debate rollup.
type Summary struct {
	PerModel     map[string]*PerModel
	TotalTokens  int
	TotalCostUSD *float64
}

// Compute walks every response in t (all rounds plus the synthesis, when
// present) and totals tokens and cost per model alias. TotalCostUSD is nil
// unless at least one response had a computable cost — the sum of
// "unknown" costs is unknown, not zero.
func Compute(t *transcript.Transcript, cache *pricing.Cache) Summary {
	perModel := make(map[string]*PerModel)

	var total float64

	var totalTokens int

	hasAnyCost := false

	record := func(r transcript.ModelResponse) {
		entry, ok := perModel[r.ModelAlias]
		if !ok {
			entry = &PerModel{}
			perModel[r.ModelAlias] = entry
		}

		entry.Calls++

		if r.InputTokens != nil {
			entry.InputTokens += *r.InputTokens
		}

		if r.OutputTokens != nil {
			entry.OutputTokens += *r.OutputTokens
		}

		if r.TokenCount != nil {
			entry.Tokens += *r.TokenCount
			totalTokens += *r.TokenCount
		}

		modelPricing, hasPricing := cache.GetPricing(r.ModelID)

		cost := pricing.ComputeCost(r.InputTokens, r.OutputTokens, modelPricing, hasPricing)
		if cost == nil {
			return
		}

		if entry.CostUSD == nil {
			entry.CostUSD = new(float64)
		}

		*entry.CostUSD += *cost
		total += *cost
		hasAnyCost = true
	}

	for _, round := range t.Rounds {
		for _, r := range round.Responses {
			record(r)
		}
	}

	if t.Synthesis != nil {
		record(*t.Synthesis)
	}

	summary := Summary{PerModel: perModel, TotalTokens: totalTokens}

	if hasAnyCost {
		summary.TotalCostUSD = &total
	}

	return summary
}
