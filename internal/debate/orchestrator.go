// Package debate orchestrates a multi-round, multi-model debate: an
// initial round, zero or more reflection rounds, and a final synthesis,
// optionally graded against a known-correct answer.
package debate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mihaisavezi/mutual-dissent/internal/pricing"
	"github.com/mihaisavezi/mutual-dissent/internal/prompts"
	"github.com/mihaisavezi/mutual-dissent/internal/providers"
	"github.com/mihaisavezi/mutual-dissent/internal/router"
	"github.com/mihaisavezi/mutual-dissent/internal/scoring"
	"github.com/mihaisavezi/mutual-dissent/internal/stats"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const systemPreamble = "You are one participant in a structured, multi-model debate. Answer directly and concisely."

// RoundHook is invoked once per completed round (including the synthesis,
// reported with RoundNumber -1). A hook failure is logged and never
// aborts the debate.
type RoundHook func(round transcript.DebateRound)

// Orchestrator runs debates and replays over a shared router, transcript
// store, and pricing cache.
type Orchestrator struct {
	router  *router.Router
	store   *transcript.Store
	pricing *pricing.Cache
	logger  *slog.Logger
}

// New builds an Orchestrator.
func New(r *router.Router, store *transcript.Store, pricingCache *pricing.Cache, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{router: r, store: store, pricing: pricingCache, logger: logger}
}

// RunOptions configures a fresh debate.
type RunOptions struct {
	Query       string
	Panel       []string
	Synthesizer string
	Rounds      int // number of reflection rounds beyond the initial round
	GroundTruth string
	// PanelistContext maps a panelist alias to retrieval-augmentation text
	// prepended to that alias's prompt in every round. An alias absent
	// from the map gets no injected context.
	PanelistContext map[string]string
	OnRoundComplete RoundHook
}

// Run executes a fresh debate end to end: an initial round, Rounds
// reflection rounds, a synthesis, and — when GroundTruth is set — a
// scoring pass. Cancelling ctx is observed only at round boundaries: a
// round already dispatched always finishes, and the transcript returned
// for a cancelled run is the partial result with its aborted marker set,
// not a Go error.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*transcript.Transcript, error) {
	t := transcript.New(opts.Query, opts.Synthesizer, opts.Panel, opts.Rounds)
	t.Metadata["resolved_config"] = map[string]any{
		"panel":        opts.Panel,
		"synthesizer":  opts.Synthesizer,
		"max_rounds":   opts.Rounds,
		"ground_truth": opts.GroundTruth != "",
	}

	if len(opts.PanelistContext) > 0 {
		t.Metadata["panelist_context"] = opts.PanelistContext
	}

	if o.cancelledBetweenRounds(ctx, t) {
		return t, nil
	}

	initial, err := o.runInitialRound(ctx, opts.Query, opts.Panel, opts.PanelistContext)
	if err != nil {
		return nil, fmt.Errorf("initial round: %w", err)
	}

	t.Rounds = append(t.Rounds, initial)
	o.fireHook(opts.OnRoundComplete, initial)

	if o.cancelledBetweenRounds(ctx, t) {
		return t, nil
	}

	prevResponses := initial.Responses

	for roundNum := 1; roundNum <= opts.Rounds; roundNum++ {
		round, err := o.runReflectionRound(ctx, opts.Query, opts.Panel, prevResponses, roundNum, opts.PanelistContext)
		if err != nil {
			return nil, fmt.Errorf("reflection round %d: %w", roundNum, err)
		}

		t.Rounds = append(t.Rounds, round)
		o.fireHook(opts.OnRoundComplete, round)

		prevResponses = round.Responses

		if o.cancelledBetweenRounds(ctx, t) {
			return t, nil
		}
	}

	synthesis, err := o.runSynthesis(ctx, opts.Query, t.Rounds, opts.Synthesizer)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	t.Synthesis = &synthesis
	o.fireHook(opts.OnRoundComplete, transcript.DebateRound{RoundNumber: -1, RoundType: transcript.RoundSynthesis, Responses: []transcript.ModelResponse{synthesis}})

	if opts.GroundTruth != "" {
		score := o.score(ctx, opts.Synthesizer, opts.Query, synthesis.Content, opts.GroundTruth)
		t.AttachScore(score)
	}

	o.attachStats(t)

	return t, nil
}

// ReplayOptions configures a replay of a prior transcript with additional
// reflection rounds and/or a different synthesizer.
type ReplayOptions struct {
	Source           *transcript.Transcript
	Synthesizer      string // empty keeps the source's synthesizer
	AdditionalRounds int
	GroundTruth      string
	PanelistContext  map[string]string
	OnRoundComplete  RoundHook
}

// Replay builds a new transcript that shares the source's prior rounds
// (a shallow copy — those DebateRound values are never mutated) and
// extends it with AdditionalRounds more reflection rounds before
// re-running synthesis and, optionally, scoring.
func (o *Orchestrator) Replay(ctx context.Context, opts ReplayOptions) (*transcript.Transcript, error) {
	synthesizer := opts.Synthesizer
	if synthesizer == "" {
		synthesizer = opts.Source.SynthesizerID
	}

	t := transcript.New(opts.Source.Query, synthesizer, opts.Source.Panel, opts.Source.MaxRounds+opts.AdditionalRounds)
	t.Rounds = append(t.Rounds, opts.Source.Rounds...) // shallow copy, shared DebateRound values

	t.Metadata["source_transcript_id"] = opts.Source.TranscriptID
	t.Metadata["replay_config"] = map[string]any{
		"synthesizer_override": opts.Synthesizer,
		"additional_rounds":    opts.AdditionalRounds,
	}

	if len(t.Rounds) == 0 {
		return nil, fmt.Errorf("replay: source transcript has no rounds")
	}

	prevResponses := t.Rounds[len(t.Rounds)-1].Responses
	startRound := len(opts.Source.Rounds)

	if o.cancelledBetweenRounds(ctx, t) {
		return t, nil
	}

	for i := 0; i < opts.AdditionalRounds; i++ {
		roundNum := startRound + i

		round, err := o.runReflectionRound(ctx, opts.Source.Query, opts.Source.Panel, prevResponses, roundNum, opts.PanelistContext)
		if err != nil {
			return nil, fmt.Errorf("replay reflection round %d: %w", roundNum, err)
		}

		t.Rounds = append(t.Rounds, round)
		o.fireHook(opts.OnRoundComplete, round)

		prevResponses = round.Responses

		if o.cancelledBetweenRounds(ctx, t) {
			return t, nil
		}
	}

	synthesis, err := o.runSynthesis(ctx, opts.Source.Query, t.Rounds, synthesizer)
	if err != nil {
		return nil, fmt.Errorf("replay synthesis: %w", err)
	}

	t.Synthesis = &synthesis
	o.fireHook(opts.OnRoundComplete, transcript.DebateRound{RoundNumber: -1, RoundType: transcript.RoundSynthesis, Responses: []transcript.ModelResponse{synthesis}})

	if opts.GroundTruth != "" {
		score := o.score(ctx, synthesizer, opts.Source.Query, synthesis.Content, opts.GroundTruth)
		t.AttachScore(score)
	}

	o.attachStats(t)

	return t, nil
}

func (o *Orchestrator) cancelledBetweenRounds(ctx context.Context, t *transcript.Transcript) bool {
	if ctx.Err() == nil {
		return false
	}

	o.logger.Info("debate cancelled at round boundary", "transcript_id", t.TranscriptID, "rounds_completed", len(t.Rounds))
	t.MarkAborted()

	return true
}

func (o *Orchestrator) runInitialRound(ctx context.Context, query string, panel []string, panelistContext map[string]string) (transcript.DebateRound, error) {
	base := prompts.Initial(query)

	reqs := make([]router.Request, 0, len(panel))
	for _, alias := range panel {
		prompt := injectContext(base, panelistContext[alias])

		reqs = append(reqs, router.Request{
			Alias:       alias,
			RoundNumber: 0,
			Messages:    buildMessages(prompt),
		})
	}

	responses := o.router.CompleteParallel(ctx, reqs)

	return transcript.DebateRound{RoundNumber: 0, RoundType: transcript.RoundInitial, Responses: responses}, nil
}

func (o *Orchestrator) runReflectionRound(ctx context.Context, query string, panel []string, prevResponses []transcript.ModelResponse, roundNumber int, panelistContext map[string]string) (transcript.DebateRound, error) {
	// "Last wins": a duplicated alias's later response replaces the
	// earlier one as that alias's "own previous response".
	responseMap := make(map[string]transcript.ModelResponse, len(prevResponses))
	for _, r := range prevResponses {
		responseMap[r.ModelAlias] = r
	}

	reqs := make([]router.Request, 0, len(panel))

	for _, alias := range panel {
		own, ok := responseMap[alias]
		ownText := ""

		if ok {
			ownText = own.Content
		}

		var others []prompts.AliasText

		for _, r := range prevResponses {
			if r.ModelAlias == alias {
				continue
			}

			others = append(others, prompts.AliasText{Alias: r.ModelAlias, Text: r.Content})
		}

		prompt := prompts.Reflection(query, ownText, others)
		prompt = injectContext(prompt, panelistContext[alias])

		reqs = append(reqs, router.Request{
			Alias:       alias,
			RoundNumber: roundNumber,
			Messages:    buildMessages(prompt),
		})
	}

	responses := o.router.CompleteParallel(ctx, reqs)

	return transcript.DebateRound{RoundNumber: roundNumber, RoundType: transcript.RoundReflection, Responses: responses}, nil
}

func (o *Orchestrator) runSynthesis(ctx context.Context, query string, rounds []transcript.DebateRound, synthesizerAlias string) (transcript.ModelResponse, error) {
	summaries := make([]prompts.RoundSummary, 0, len(rounds))

	for _, round := range rounds {
		var entries []prompts.AliasText

		for _, r := range round.Responses {
			if r.Failed() {
				continue
			}

			entries = append(entries, prompts.AliasText{Alias: r.ModelAlias, Text: r.Content})
		}

		if len(entries) == 0 {
			continue
		}

		summaries = append(summaries, prompts.RoundSummary{RoundType: string(round.RoundType), Responses: entries})
	}

	formatted := prompts.FormatTranscriptForSynthesis(summaries)
	prompt := prompts.Synthesis(query, formatted)

	resp, err := o.router.Complete(ctx, router.Request{
		Alias:       synthesizerAlias,
		RoundNumber: -1,
		Messages:    buildMessages(prompt),
	})
	if err != nil {
		return transcript.ModelResponse{}, err
	}

	return resp, nil
}

func (o *Orchestrator) score(ctx context.Context, judgeAlias, query, synthesisText, groundTruth string) transcript.GroundTruthScore {
	judge := func(ctx context.Context, prompt string) (string, error) {
		resp, err := o.router.Complete(ctx, router.Request{
			Alias:       judgeAlias,
			RoundNumber: -2,
			Messages:    buildMessages(prompt),
		})
		if err != nil {
			return "", err
		}

		if resp.Failed() {
			return "", fmt.Errorf("judge call returned an error response: %s", resp.Error)
		}

		return resp.Content, nil
	}

	return scoring.Score(ctx, judge, judgeAlias, query, synthesisText, groundTruth)
}

func (o *Orchestrator) attachStats(t *transcript.Transcript) {
	summary := stats.Compute(t, o.pricing)

	perModel := make(map[string]any, len(summary.PerModel))
	for alias, m := range summary.PerModel {
		entry := map[string]any{
			"calls":         m.Calls,
			"input_tokens":  m.InputTokens,
			"output_tokens": m.OutputTokens,
			"tokens":        m.Tokens,
		}
		if m.CostUSD != nil {
			entry["cost_usd"] = *m.CostUSD
		}

		perModel[alias] = entry
	}

	statsMap := map[string]any{"per_model": perModel, "total_tokens": summary.TotalTokens}
	if summary.TotalCostUSD != nil {
		statsMap["total_cost_usd"] = *summary.TotalCostUSD
	}

	t.Metadata["stats"] = statsMap
}

func (o *Orchestrator) fireHook(hook RoundHook, round transcript.DebateRound) {
	if hook == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("round hook panicked", "panic", rec)
		}
	}()

	hook(round)
}

func buildMessages(prompt string) []providers.Message {
	return []providers.Message{
		{Role: "system", Content: systemPreamble},
		{Role: "user", Content: prompt},
	}
}

func injectContext(prompt, panelistContext string) string {
	if panelistContext == "" {
		return prompt
	}

	return fmt.Sprintf("%s\n\n%s", panelistContext, prompt)
}
