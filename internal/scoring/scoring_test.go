package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreResponse_WellFormed(t *testing.T) {
	a, c, e, err := ParseScoreResponse("ACCURACY: 4\nCOMPLETENESS: 3\nEXPLANATION: Mostly right but missed a detail.")
	require.NoError(t, err)
	assert.Equal(t, 4, a)
	assert.Equal(t, 3, c)
	assert.Equal(t, "Mostly right but missed a detail.", e)
}

func TestParseScoreResponse_ClampsOutOfRange(t *testing.T) {
	a, c, _, err := ParseScoreResponse("Accuracy: 9\ncompleteness: 0\nexplanation: whatever")
	require.NoError(t, err)
	assert.Equal(t, 5, a)
	assert.Equal(t, 1, c)
}

func TestParseScoreResponse_FieldsOutOfOrder(t *testing.T) {
	_, _, _, err := ParseScoreResponse("EXPLANATION: fine\nACCURACY: 3\nCOMPLETENESS: 3")
	require.NoError(t, err)
}

func TestParseScoreResponse_MissingExplanationDefaultsToEmpty(t *testing.T) {
	a, c, e, err := ParseScoreResponse("ACCURACY: 3\nCOMPLETENESS: 3")
	require.NoError(t, err)
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, c)
	assert.Equal(t, "", e)
}

func TestParseScoreResponse_MissingAccuracyFails(t *testing.T) {
	_, _, _, err := ParseScoreResponse("COMPLETENESS: 3\nEXPLANATION: fine")
	require.Error(t, err)
}

func TestParseScoreResponse_MissingCompletenessFails(t *testing.T) {
	_, _, _, err := ParseScoreResponse("ACCURACY: 3\nEXPLANATION: fine")
	require.Error(t, err)
}

func TestParseScoreResponse_NonNumeric(t *testing.T) {
	_, _, _, err := ParseScoreResponse("ACCURACY: high\nCOMPLETENESS: 3\nEXPLANATION: x")
	require.Error(t, err)
}

func TestScore_ParseFailureFallsBackToSentinel(t *testing.T) {
	judge := func(_ context.Context, _ string) (string, error) {
		return "I think it's pretty good overall.", nil
	}

	score := Score(context.Background(), judge, "claude", "Q", "synthesis", "truth")
	assert.Equal(t, -1, score.Accuracy)
	assert.Equal(t, -1, score.Completeness)
	assert.Equal(t, -1.0, score.Overall)
	assert.NotEmpty(t, score.Explanation)
}

func TestScore_JudgeCallFailureFallsBackToSentinel(t *testing.T) {
	judge := func(_ context.Context, _ string) (string, error) {
		return "", errors.New("timeout")
	}

	score := Score(context.Background(), judge, "claude", "Q", "synthesis", "truth")
	assert.Equal(t, -1, score.Accuracy)
}

func TestScore_ClampsBeforeAveraging(t *testing.T) {
	judge := func(_ context.Context, _ string) (string, error) {
		return "ACCURACY: 7\nCOMPLETENESS: 0\nEXPLANATION: bad", nil
	}

	score := Score(context.Background(), judge, "claude", "Q", "synthesis", "truth")
	assert.Equal(t, 5, score.Accuracy)
	assert.Equal(t, 1, score.Completeness)
	assert.Equal(t, 3.0, score.Overall)
	assert.Equal(t, "bad", score.Explanation)
}

func TestScore_Success(t *testing.T) {
	judge := func(_ context.Context, _ string) (string, error) {
		return "ACCURACY: 5\nCOMPLETENESS: 4\nEXPLANATION: Solid answer.", nil
	}

	score := Score(context.Background(), judge, "claude", "Q", "synthesis", "truth")
	assert.Equal(t, 5, score.Accuracy)
	assert.Equal(t, 4, score.Completeness)
	assert.Equal(t, 4.5, score.Overall)
	assert.Equal(t, "claude", score.JudgeModel)
}
