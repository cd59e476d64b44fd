package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscript() *Transcript {
	t := New("what is the capital of France?", "claude", []string{"claude", "gpt"}, 1)
	in, out := 120, 45
	t.Rounds = append(t.Rounds, DebateRound{
		RoundNumber: 0,
		RoundType:   RoundInitial,
		Responses: []ModelResponse{
			{ModelAlias: "claude", ModelID: "anthropic/claude-sonnet-4.5", Content: "Paris.", RoundNumber: 0, InputTokens: &in, OutputTokens: &out},
			{ModelAlias: "gpt", ModelID: "openai/gpt-5.2", Content: "Paris.", RoundNumber: 0},
		},
	})

	return t
}

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	transcript := newTestTranscript()

	path, err := store.Save(transcript)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := store.Load(transcript.ShortID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, transcript.TranscriptID, loaded.TranscriptID)
	assert.Equal(t, transcript.Query, loaded.Query)
	require.Len(t, loaded.Rounds, 1)
	require.Len(t, loaded.Rounds[0].Responses, 2)
	require.NotNil(t, loaded.Rounds[0].Responses[0].InputTokens)
	assert.Equal(t, 120, *loaded.Rounds[0].Responses[0].InputTokens)
}

func TestStore_Load_Nonexistent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	loaded, err := store.Load("deadbeef")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_Load_PrefixTooShort(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save(newTestTranscript())
	require.NoError(t, err)

	_, err = store.Load("abc")
	require.ErrorIs(t, err, ErrPrefixTooShort)
}

func TestStore_Load_AmbiguousPrefix(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	a := newTestTranscript()
	a.TranscriptID = "aaaaaaaa-0000-0000-0000-000000000000"
	b := newTestTranscript()
	b.TranscriptID = "aaaaaaab-0000-0000-0000-000000000000"

	_, err = store.Save(a)
	require.NoError(t, err)
	_, err = store.Save(b)
	require.NoError(t, err)

	_, err = store.Load("aaaaaaa")
	require.Error(t, err)

	var ambErr *AmbiguousError
	require.ErrorAs(t, err, &ambErr)
	assert.Len(t, ambErr.Matches, 2)
}

func TestStore_List_MostRecentFirst(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	first := newTestTranscript()
	first.CreatedAt = first.CreatedAt.AddDate(0, 0, -1)
	second := newTestTranscript()

	_, err = store.Save(first)
	require.NoError(t, err)
	_, err = store.Save(second)
	require.NoError(t, err)

	summaries, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].CreatedAt.After(summaries[1].CreatedAt) || summaries[0].CreatedAt.Equal(summaries[1].CreatedAt))
}

func TestStore_Save_FoldsExperimentMetadataIntoMetadataMap(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	transcript := newTestTranscript()
	transcript.Experiment = &ExperimentMetadata{ExperimentID: "exp-123", Condition: "control"}

	_, err = store.Save(transcript)
	require.NoError(t, err)

	loaded, err := store.Load(transcript.ShortID())
	require.NoError(t, err)
	require.NotNil(t, loaded.Experiment)
	assert.Equal(t, "exp-123", loaded.Experiment.ExperimentID)
}

func TestTranscript_MarkAborted(t *testing.T) {
	transcript := newTestTranscript()
	assert.False(t, transcript.Aborted())

	transcript.MarkAborted()
	assert.True(t, transcript.Aborted())
}
