// Package prompts assembles the text sent to panelists, the synthesizer,
// and the scoring judge at each stage of a debate.
package prompts

import (
	"fmt"
	"strings"
)

// AliasText pairs a panelist's alias with one piece of text it produced,
// used when building reflection and synthesis prompts.
type AliasText struct {
	Alias string
	Text  string
}

// RoundSummary is one round's worth of responses, reduced to what the
// synthesis prompt needs.
type RoundSummary struct {
	RoundType string
	Responses []AliasText
}

// Initial builds the prompt every panelist sees for the opening round.
func Initial(query string) string {
	return fmt.Sprintf("Question:\n%s\n\nProvide your best answer.", query)
}

// Reflection builds the prompt a panelist sees in a reflection round: its
// own previous answer plus every other panelist's latest answer.
func Reflection(query, ownResponse string, others []AliasText) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question:\n%s\n\n", query)
	fmt.Fprintf(&b, "Your previous answer:\n%s\n\n", ownResponse)
	b.WriteString("Other panelists' answers:\n\n")

	parts := make([]string, 0, len(others))
	for _, o := range others {
		parts = append(parts, fmt.Sprintf("[%s]:\n%s", o.Alias, o.Text))
	}

	b.WriteString(strings.Join(parts, "\n\n"))
	b.WriteString("\n\nReconsider your answer in light of the above. Revise it if you've changed your mind, or restate it if you haven't.")

	return b.String()
}

// FormatTranscriptForSynthesis renders every prior round into the section
// layout the synthesis prompt embeds.
func FormatTranscriptForSynthesis(rounds []RoundSummary) string {
	sections := make([]string, 0, len(rounds))

	for _, round := range rounds {
		entries := make([]string, 0, len(round.Responses))
		for _, r := range round.Responses {
			entries = append(entries, fmt.Sprintf("[%s]:\n%s", r.Alias, r.Text))
		}

		sections = append(sections, fmt.Sprintf("=== %s ROUND ===\n\n%s", strings.ToUpper(round.RoundType), strings.Join(entries, "\n\n")))
	}

	return strings.Join(sections, "\n\n")
}

// Synthesis builds the prompt the synthesizer model sees: the original
// question plus the full formatted transcript.
func Synthesis(query, formattedTranscript string) string {
	return fmt.Sprintf("Question:\n%s\n\nFull debate transcript:\n\n%s\n\nSynthesize the panel's discussion into a single best answer.", query, formattedTranscript)
}

// Scoring builds the prompt a judge model sees to grade a synthesis
// against a known-correct answer. The judge is asked to respond with
// ACCURACY/COMPLETENESS/EXPLANATION fields, parsed by internal/scoring.
func Scoring(query, groundTruth, synthesis string) string {
	return fmt.Sprintf(
		"Question:\n%s\n\nKnown correct answer:\n%s\n\nCandidate answer to grade:\n%s\n\n"+
			"Respond with exactly these fields:\nACCURACY: <1-5>\nCOMPLETENESS: <1-5>\nEXPLANATION: <one paragraph>",
		query, groundTruth, synthesis,
	)
}
