package debate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/mutual-dissent/internal/pricing"
	"github.com/mihaisavezi/mutual-dissent/internal/providers"
	"github.com/mihaisavezi/mutual-dissent/internal/router"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

type scriptedProvider struct {
	alias string
	calls int32
}

func (p *scriptedProvider) Open(_ context.Context) error { return nil }
func (p *scriptedProvider) Close() error                 { return nil }

func (p *scriptedProvider) Complete(_ context.Context, req providers.CompletionRequest) (transcript.ModelResponse, error) {
	n := atomic.AddInt32(&p.calls, 1)

	return transcript.ModelResponse{
		ModelAlias:  req.ModelAlias,
		ModelID:     req.ModelID,
		Content:     fmt.Sprintf("%s round %d answer #%d", req.ModelAlias, req.RoundNumber, n),
		RoundNumber: req.RoundNumber,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *transcript.Store) {
	t.Helper()

	reg := vendor.NewRegistry()
	reg.Register(vendor.Model{Alias: "claude", Vendor: vendor.Anthropic, AggregatorID: "anthropic/claude-sonnet-4.5", DirectID: "claude-sonnet-4-5-20250929"})
	reg.Register(vendor.Model{Alias: "gpt", Vendor: vendor.OpenAI, AggregatorID: "openai/gpt-5.2", DirectID: "gpt-5.2"})

	r := router.New(reg, vendor.ModeAuto, nil, testLogger())
	r.RegisterVendor(vendor.Anthropic, &scriptedProvider{alias: "claude"})
	r.RegisterVendor(vendor.OpenAI, &scriptedProvider{alias: "gpt"})

	store, err := transcript.NewStore(t.TempDir())
	require.NoError(t, err)

	cache := pricing.NewCache(nil, testLogger())

	return New(r, store, cache, testLogger()), store
}

func TestOrchestrator_Run_FreshDebate(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	tr, err := o.Run(context.Background(), RunOptions{
		Query:       "What is 2+2?",
		Panel:       []string{"claude", "gpt"},
		Synthesizer: "claude",
		Rounds:      1,
	})
	require.NoError(t, err)
	require.Len(t, tr.Rounds, 2)
	assert.Equal(t, transcript.RoundInitial, tr.Rounds[0].RoundType)
	assert.Equal(t, transcript.RoundReflection, tr.Rounds[1].RoundType)
	require.NotNil(t, tr.Synthesis)
	assert.False(t, tr.Aborted())
	assert.Contains(t, tr.Metadata, "stats")
}

func TestOrchestrator_Run_WithGroundTruthScores(t *testing.T) {
	reg := vendor.NewRegistry()
	reg.Register(vendor.Model{Alias: "claude", Vendor: vendor.Anthropic, AggregatorID: "anthropic/claude-sonnet-4.5", DirectID: "claude-sonnet-4-5-20250929"})

	judge := &judgeProvider{}
	r := router.New(reg, vendor.ModeAuto, nil, testLogger())
	r.RegisterVendor(vendor.Anthropic, judge)

	store, err := transcript.NewStore(t.TempDir())
	require.NoError(t, err)

	o := New(r, store, pricing.NewCache(nil, testLogger()), testLogger())

	tr, err := o.Run(context.Background(), RunOptions{
		Query:       "Q",
		Panel:       []string{"claude"},
		Synthesizer: "claude",
		Rounds:      0,
		GroundTruth: "the correct answer",
	})
	require.NoError(t, err)
	require.Contains(t, tr.Metadata, "scores")
	scores, ok := tr.Metadata["scores"].(map[string]any)
	require.True(t, ok)
	score, ok := scores["synthesis_score"].(transcript.GroundTruthScore)
	require.True(t, ok)
	assert.Equal(t, 5, score.Accuracy)
	require.NotNil(t, tr.Synthesis)
	require.Contains(t, tr.Synthesis.Analysis, "ground_truth_score")
	assert.Equal(t, score, tr.Synthesis.Analysis["ground_truth_score"])
}

type judgeProvider struct{}

func (p *judgeProvider) Open(_ context.Context) error { return nil }
func (p *judgeProvider) Close() error                 { return nil }

func (p *judgeProvider) Complete(_ context.Context, req providers.CompletionRequest) (transcript.ModelResponse, error) {
	content := "a synthesized answer"
	if req.RoundNumber == -2 {
		content = "ACCURACY: 5\nCOMPLETENESS: 5\nEXPLANATION: Great."
	}

	return transcript.ModelResponse{ModelAlias: req.ModelAlias, Content: content, RoundNumber: req.RoundNumber}, nil
}

func TestOrchestrator_Run_DuplicateAliasLastWins(t *testing.T) {
	reg := vendor.NewRegistry()
	reg.Register(vendor.Model{Alias: "claude", Vendor: vendor.Anthropic, AggregatorID: "anthropic/claude-sonnet-4.5", DirectID: "claude-sonnet-4-5-20250929"})

	r := router.New(reg, vendor.ModeAuto, nil, testLogger())
	r.RegisterVendor(vendor.Anthropic, &scriptedProvider{alias: "claude"})

	store, err := transcript.NewStore(t.TempDir())
	require.NoError(t, err)

	o := New(r, store, pricing.NewCache(nil, testLogger()), testLogger())

	tr, err := o.Run(context.Background(), RunOptions{
		Query:       "Q",
		Panel:       []string{"claude", "claude"},
		Synthesizer: "claude",
		Rounds:      1,
	})
	require.NoError(t, err)
	require.Len(t, tr.Rounds[1].Responses, 2)
}

func TestOrchestrator_Run_CancelledBeforeStartReturnsZeroRoundsAborted(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr, err := o.Run(ctx, RunOptions{
		Query:       "Q",
		Panel:       []string{"claude", "gpt"},
		Synthesizer: "claude",
		Rounds:      2,
	})
	require.NoError(t, err)
	assert.True(t, tr.Aborted())
	assert.Len(t, tr.Rounds, 0)
	assert.Nil(t, tr.Synthesis)
}

func TestOrchestrator_Run_CancelledAfterRoundZeroStopsBeforeNextRound(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())

	var hookCalls int32

	tr, err := o.Run(ctx, RunOptions{
		Query:       "Q",
		Panel:       []string{"claude", "gpt"},
		Synthesizer: "claude",
		Rounds:      2,
		OnRoundComplete: func(_ transcript.DebateRound) {
			// Cancel from round 0's hook. The hook runs before round 1 is
			// dispatched, so the cancellation is seen at that boundary:
			// round 0 is kept and round 1 never starts.
			if atomic.AddInt32(&hookCalls, 1) == 1 {
				cancel()
			}
		},
	})
	require.NoError(t, err)
	assert.True(t, tr.Aborted())
	assert.Len(t, tr.Rounds, 1)
	assert.Nil(t, tr.Synthesis)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
}

func TestOrchestrator_Replay_SharesPriorRoundsAndAddsMore(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	source, err := o.Run(context.Background(), RunOptions{
		Query:       "Q",
		Panel:       []string{"claude", "gpt"},
		Synthesizer: "claude",
		Rounds:      0,
	})
	require.NoError(t, err)
	require.Len(t, source.Rounds, 1)

	replayed, err := o.Replay(context.Background(), ReplayOptions{
		Source:           source,
		AdditionalRounds: 1,
	})
	require.NoError(t, err)
	require.Len(t, replayed.Rounds, 2)
	assert.Equal(t, source.Rounds[0].Responses[0].Content, replayed.Rounds[0].Responses[0].Content)
	assert.Equal(t, source.TranscriptID, replayed.Metadata["source_transcript_id"])
	assert.Equal(t, source.MaxRounds+1, replayed.MaxRounds)
}

func TestOrchestrator_Run_RoundHookIsCalledPerRound(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	var hookCalls int32

	_, err := o.Run(context.Background(), RunOptions{
		Query:       "Q",
		Panel:       []string{"claude"},
		Synthesizer: "claude",
		Rounds:      1,
		OnRoundComplete: func(_ transcript.DebateRound) {
			atomic.AddInt32(&hookCalls, 1)
		},
	})
	require.NoError(t, err)
	// initial + reflection + synthesis = 3 hook calls
	assert.Equal(t, int32(3), atomic.LoadInt32(&hookCalls))
}

func TestOrchestrator_Run_PanickyHookDoesNotAbortDebate(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	tr, err := o.Run(context.Background(), RunOptions{
		Query:       "Q",
		Panel:       []string{"claude"},
		Synthesizer: "claude",
		Rounds:      0,
		OnRoundComplete: func(_ transcript.DebateRound) {
			panic("hook blew up")
		},
	})
	require.NoError(t, err)
	require.NotNil(t, tr.Synthesis)
}
