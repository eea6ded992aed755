package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

func TestStore_Sessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	_, ok, err := s.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	st := domain.InitialSessionState()
	st.Progress.Scores = []int{4}
	st.Progress.CurrentQuestionIndex = 1
	require.NoError(t, s.SaveSession(ctx, "s1", st))
	st.Progress.Scores[0] = 9

	got, ok, err := s.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{4}, got.Progress.Scores)

	require.NoError(t, s.SetInterviewInProgress(ctx, "s1", true))
	v, _ := s.InterviewInProgress(ctx, "s1")
	assert.True(t, v)
	require.NoError(t, s.SetInterviewInProgress(ctx, "s1", false))
	v, _ = s.InterviewInProgress(ctx, "s1")
	assert.False(t, v)
	assert.NoError(t, s.Ping(ctx))
}

func TestStore_Archive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	mustUpsert(t, s, domain.CandidateRecord{ID: "a", Email: "a@x.io", Score: 5, Position: 0})
	mustUpsert(t, s, domain.CandidateRecord{ID: "b", Email: "b@x.io", Score: 6, Position: 1})
	mustUpsert(t, s, domain.CandidateRecord{ID: "z", Email: "A@X.io", Score: 9, Position: 7})

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, 9.0, recs[0].Score)
	assert.Equal(t, 0, recs[0].Position)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrNotFound)
	recs, _ = s.List(ctx)
	assert.Len(t, recs, 1)
}

func mustUpsert(t *testing.T, s *Store, rec domain.CandidateRecord) domain.CandidateRecord {
	t.Helper()
	stored, err := s.Upsert(context.Background(), rec)
	require.NoError(t, err)
	return stored
}

func TestStore_UpsertReturnsStoredRecord(t *testing.T) {
	t.Parallel()
	s := New()

	first := mustUpsert(t, s, domain.CandidateRecord{ID: "a", Email: "ada@example.com", Position: 9})
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, 0, first.Position, "position is assigned by the store")

	second := mustUpsert(t, s, domain.CandidateRecord{ID: "b", Email: "bob@example.com"})
	assert.Equal(t, 1, second.Position)

	again := mustUpsert(t, s, domain.CandidateRecord{ID: "fresh", Email: "ADA@example.com", Score: 8})
	assert.Equal(t, "a", again.ID)
	assert.Equal(t, 0, again.Position)
	assert.Equal(t, 8.0, again.Score)
}
