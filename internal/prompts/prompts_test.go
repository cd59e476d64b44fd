package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitial(t *testing.T) {
	p := Initial("What is the capital of France?")
	assert.Contains(t, p, "What is the capital of France?")
}

func TestReflection_IncludesOwnAndOthers(t *testing.T) {
	p := Reflection("Q", "my previous answer", []AliasText{
		{Alias: "gpt", Text: "gpt's answer"},
		{Alias: "gemini", Text: "gemini's answer"},
	})

	assert.Contains(t, p, "my previous answer")
	assert.Contains(t, p, "[gpt]:\ngpt's answer")
	assert.Contains(t, p, "[gemini]:\ngemini's answer")
}

func TestFormatTranscriptForSynthesis(t *testing.T) {
	out := FormatTranscriptForSynthesis([]RoundSummary{
		{RoundType: "initial", Responses: []AliasText{{Alias: "claude", Text: "answer one"}}},
		{RoundType: "reflection", Responses: []AliasText{{Alias: "claude", Text: "answer two"}}},
	})

	assert.Contains(t, out, "=== INITIAL ROUND ===")
	assert.Contains(t, out, "=== REFLECTION ROUND ===")
	assert.Contains(t, out, "answer one")
	assert.Contains(t, out, "answer two")
}

func TestScoring_IncludesFieldInstructions(t *testing.T) {
	p := Scoring("Q", "truth", "candidate")
	assert.Contains(t, p, "ACCURACY:")
	assert.Contains(t, p, "COMPLETENESS:")
	assert.Contains(t, p, "EXPLANATION:")
}
