// Package scoring grades a debate's synthesis against a known-correct
// answer using an LLM-as-judge call and a lenient regex-based parser.
package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mihaisavezi/mutual-dissent/internal/prompts"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

var (
	accuracyRe     = regexp.MustCompile(`(?i)accuracy\s*:\s*(\S+)`)
	completenessRe = regexp.MustCompile(`(?i)completeness\s*:\s*(\S+)`)
	explanationRe  = regexp.MustCompile(`(?is)explanation\s*:\s*(.*)`)
)

// clamp restricts a parsed score to the valid 1-5 range.
func clamp(n int) int {
	if n < 1 {
		return 1
	}

	if n > 5 {
		return 5
	}

	return n
}

// ParseScoreResponse extracts ACCURACY/COMPLETENESS/EXPLANATION fields
// from a judge's free-text reply. Each field is matched independently, so
// field order and surrounding prose don't matter. Accuracy and completeness
// must both be present and numeric; explanation is optional and defaults to
// "" when the judge's reply omits it.
func ParseScoreResponse(content string) (accuracy, completeness int, explanation string, err error) {
	am := accuracyRe.FindStringSubmatch(content)
	if am == nil {
		return 0, 0, "", fmt.Errorf("scoring: no ACCURACY field found")
	}

	cm := completenessRe.FindStringSubmatch(content)
	if cm == nil {
		return 0, 0, "", fmt.Errorf("scoring: no COMPLETENESS field found")
	}

	a, err := strconv.Atoi(strings.TrimSpace(am[1]))
	if err != nil {
		return 0, 0, "", fmt.Errorf("scoring: ACCURACY value %q is not numeric", am[1])
	}

	c, err := strconv.Atoi(strings.TrimSpace(cm[1]))
	if err != nil {
		return 0, 0, "", fmt.Errorf("scoring: COMPLETENESS value %q is not numeric", cm[1])
	}

	explanation = ""
	if em := explanationRe.FindStringSubmatch(content); em != nil {
		explanation = strings.TrimSpace(em[1])
	}

	return clamp(a), clamp(c), explanation, nil
}

// JudgeFunc dispatches one scoring call to the judge model, returning its
// raw text reply.
type JudgeFunc func(ctx context.Context, prompt string) (string, error)

// fallbackScore is what a debate reports when grading fails outright —
// never a fabricated zero, a sentinel that's unambiguously "could not
// score this".
const fallbackScore = -1

// Score grades synthesisText against groundTruth by calling judge with a
// scoring prompt. It never returns a Go error: a transport failure or an
// unparseable reply produces a GroundTruthScore with every field set to
// -1 and an explanatory message, exactly like a parse failure does.
func Score(ctx context.Context, judge JudgeFunc, judgeAlias, query, synthesisText, groundTruth string) transcript.GroundTruthScore {
	prompt := prompts.Scoring(query, groundTruth, synthesisText)

	reply, err := judge(ctx, prompt)
	if err != nil {
		return transcript.GroundTruthScore{
			Accuracy: fallbackScore, Completeness: fallbackScore, Overall: float64(fallbackScore),
			Explanation: fmt.Sprintf("judge call failed: %v", err),
			JudgeModel:  judgeAlias,
		}
	}

	accuracy, completeness, explanation, err := ParseScoreResponse(reply)
	if err != nil {
		return transcript.GroundTruthScore{
			Accuracy: fallbackScore, Completeness: fallbackScore, Overall: float64(fallbackScore),
			Explanation: fmt.Sprintf("could not parse judge response: %v", err),
			JudgeModel:  judgeAlias,
		}
	}

	overall := float64(accuracy+completeness) / 2

	return transcript.GroundTruthScore{
		Accuracy:     accuracy,
		Completeness: completeness,
		Overall:      overall,
		Explanation:  explanation,
		JudgeModel:   judgeAlias,
	}
}
