package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return New(rdb, opts...), mr
}

func TestStore_SessionRoundTrip(t *testing.T) {
	s, mr := newTestStore(t, WithKeyPrefix("aia:"), WithSessionTTL(time.Hour))
	ctx := context.Background()

	_, ok, err := s.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	st := domain.InitialSessionState()
	st.Step = domain.StepInterviewing
	st.Profile = &domain.CandidateProfile{Name: "Ada", Email: "ada@example.com"}
	q := domain.NewQuestion("What is JSX?", domain.DifficultyEasy)
	st.ActiveQuestion = &q
	st.TimerSeconds = 12
	st.ChatHistory = domain.Transcript{domain.QuestionEntry{Text: q.Text, Difficulty: q.Difficulty}}
	require.NoError(t, s.SaveSession(ctx, "s1", st))

	raw, err := mr.Get("aia:interview:s1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"version":1`)
	assert.Equal(t, time.Hour, mr.TTL("aia:interview:s1"))

	got, ok, err := s.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StepInterviewing, got.Step)
	assert.Equal(t, 12, got.TimerSeconds)
	assert.Equal(t, "What is JSX?", got.ActiveQuestion.Text)
	require.Len(t, got.ChatHistory, 1)
	assert.Equal(t, domain.EntryQuestion, got.ChatHistory[0].Kind())
}

func TestStore_LoadSessionVersionAndCorruption(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("interview:old", `{"version":0,"data":{"step":"uploading"}}`))
	_, ok, err := s.LoadSession(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("interview:bad", `{not json`))
	_, _, err = s.LoadSession(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestStore_InterviewInProgressFlag(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	v, err := s.InterviewInProgress(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, s.SetInterviewInProgress(ctx, "s1", true))
	raw, _ := mr.Get("interviewInProgress:s1")
	assert.Equal(t, "true", raw)
	v, err = s.InterviewInProgress(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.SetInterviewInProgress(ctx, "s1", false))
	raw, _ = mr.Get("interviewInProgress:s1")
	assert.Equal(t, "false", raw)
	assert.NoError(t, s.Ping(ctx))
}

func TestStore_CandidatesUpsertKeepsPosition(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustUpsert(t, s, domain.CandidateRecord{ID: "a", Name: "Ada", Email: "ada@example.com", Score: 5, Position: 0})
	mustUpsert(t, s, domain.CandidateRecord{ID: "b", Name: "Bob", Email: "bob@example.com", Score: 6, Position: 1})
	mustUpsert(t, s, domain.CandidateRecord{ID: "x", Name: "Ada L.", Email: "ADA@example.com", Score: 9, Position: 5})

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "Ada L.", recs[0].Name)
	assert.Equal(t, 9.0, recs[0].Score)
	assert.Equal(t, 0, recs[0].Position)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrNotFound)
	recs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_CandidatesConcurrentUpserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := domain.CandidateRecord{ID: fmt.Sprint(i), Email: fmt.Sprintf("c%d@example.com", i), Position: i}
			// Conflicts are retried; a persistent conflict surfaces as ErrConflict.
			if _, err := s.Upsert(ctx, rec); err != nil {
				assert.ErrorIs(t, err, domain.ErrConflict)
			}
		}(i)
	}
	wg.Wait()

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), 4)
}

func TestStore_CandidatesConcurrentSameEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ids := make(chan string, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := domain.CandidateRecord{ID: fmt.Sprintf("fresh-%d", i), Email: "ada@example.com", Score: float64(i)}
			stored, err := s.Upsert(ctx, rec)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrConflict)
				return
			}
			ids <- stored.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	n := 0
	for id := range ids {
		assert.Equal(t, recs[0].ID, id, "every writer sees the id that was kept")
		n++
	}
	assert.Positive(t, n)
}

func TestStore_CandidatesForeignVersion(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("candidates", `{"version":7,"data":[]}`))
	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)
	_ = c.Close()

	_, err = NewClient("://nope")
	assert.Error(t, err)
}

func mustUpsert(t *testing.T, s *Store, rec domain.CandidateRecord) domain.CandidateRecord {
	t.Helper()
	stored, err := s.Upsert(context.Background(), rec)
	require.NoError(t, err)
	return stored
}
