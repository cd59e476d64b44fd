// Package transcript defines the debate data model and its on-disk store.
package transcript

import (
	"time"

	"github.com/google/uuid"

	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

// RoundType names what a round represents in the debate.
type RoundType string

const (
	RoundInitial    RoundType = "initial"
	RoundReflection RoundType = "reflection"
	RoundSynthesis  RoundType = "synthesis"
)

// ModelResponse is one panelist's (or the synthesizer's) answer to a
// single round. Token counts and cost are pointers so "the vendor did not
// report this" is representable distinctly from zero. TokenCount is the
// vendor's reported total and is tracked independently of the input/output
// split: a vendor may report one without the other.
type ModelResponse struct {
	ModelAlias   string                  `json:"model_alias"`
	ModelID      string                  `json:"model_id"`
	Role         string                  `json:"role,omitempty"`
	Content      string                  `json:"content"`
	Error        string                  `json:"error,omitempty"`
	RoundNumber  int                     `json:"round_number"`
	Routing      *vendor.RoutingDecision `json:"routing,omitempty"`
	TokenCount   *int                    `json:"token_count,omitempty"`
	InputTokens  *int                    `json:"input_tokens,omitempty"`
	OutputTokens *int                    `json:"output_tokens,omitempty"`
	CostUSD      *float64                `json:"cost_usd,omitempty"`
	Analysis     map[string]any          `json:"analysis,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// Failed reports whether this response represents an error rather than a
// usable answer.
func (r ModelResponse) Failed() bool {
	return r.Error != ""
}

// DebateRound is one round of the debate: every panelist's response to the
// same prompt.
type DebateRound struct {
	RoundNumber int             `json:"round_number"`
	RoundType   RoundType       `json:"round_type"`
	Responses   []ModelResponse `json:"responses"`
}

// GroundTruthScore is the judge's assessment of the synthesis against a
// known-correct answer.
type GroundTruthScore struct {
	Accuracy     int     `json:"accuracy"`
	Completeness int     `json:"completeness"`
	Overall      float64 `json:"overall"`
	Explanation  string  `json:"explanation"`
	JudgeModel   string  `json:"judge_model"`
}

// ExperimentMetadata tags a transcript with the experiment that produced
// it, when it was generated as part of one.
type ExperimentMetadata struct {
	ExperimentID string            `json:"experiment_id"`
	SourceTool   string            `json:"source_tool,omitempty"`
	CampaignID   string            `json:"campaign_id,omitempty"`
	Condition    string            `json:"condition,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
	FindingRef   string            `json:"finding_ref,omitempty"`
}

// Transcript is the full record of one debate, from initial round through
// synthesis and optional scoring.
type Transcript struct {
	TranscriptID  string              `json:"transcript_id"`
	Query         string              `json:"query"`
	Panel         []string            `json:"panel"`
	SynthesizerID string              `json:"synthesizer_id"`
	MaxRounds     int                 `json:"max_rounds"`
	Rounds        []DebateRound       `json:"rounds"`
	Synthesis     *ModelResponse      `json:"synthesis"`
	CreatedAt     time.Time           `json:"created_at"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
	Experiment    *ExperimentMetadata `json:"-"`
}

// New builds an empty transcript with a fresh ID and creation timestamp.
func New(query, synthesizerID string, panel []string, maxRounds int) *Transcript {
	return &Transcript{
		TranscriptID:  uuid.New().String(),
		Query:         query,
		Panel:         panel,
		SynthesizerID: synthesizerID,
		MaxRounds:     maxRounds,
		CreatedAt:     time.Now().UTC(),
		Metadata:      map[string]any{},
	}
}

// ShortID is the 8-character prefix used for filenames and human-facing
// references.
func (t *Transcript) ShortID() string {
	if len(t.TranscriptID) < 8 {
		return t.TranscriptID
	}

	return t.TranscriptID[:8]
}

// Aborted reports whether the debate was cancelled before completion.
func (t *Transcript) Aborted() bool {
	v, ok := t.Metadata["aborted"]
	if !ok {
		return false
	}

	b, _ := v.(bool)

	return b
}

// MarkAborted tags the transcript as a partial, cancelled run.
func (t *Transcript) MarkAborted() {
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}

	t.Metadata["aborted"] = true
}

// AttachScore records a ground-truth score under both metadata.scores and
// the synthesis response's analysis map, with an identical value in each
// place, per the transcript's score invariant.
func (t *Transcript) AttachScore(score GroundTruthScore) {
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}

	t.Metadata["scores"] = map[string]any{"synthesis_score": score}

	if t.Synthesis != nil {
		if t.Synthesis.Analysis == nil {
			t.Synthesis.Analysis = map[string]any{}
		}

		t.Synthesis.Analysis["ground_truth_score"] = score
	}
}
