//go:build integration

// Package integration runs the storage and extraction adapters against real
// Postgres, Redis and Tika containers. Requires Docker:
//
//	go test -tags integration ./internal/integration/...
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/store/redisstore"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/textextractor"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
	"github.com/fairyhunter13/ai-interview-assistant/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-assistant/internal/usecase"
)

// startContainer runs req and returns host:port for the exposed port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host + ":" + p.Port()
}

func TestPostgresArchiveMirror(t *testing.T) {
	t.Parallel()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "interviews"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}, "5432")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, "postgres://postgres:postgres@"+addr+"/interviews?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.Eventually(t, func() bool { return pool.Ping(ctx) == nil }, 30*time.Second, time.Second)

	repo := postgres.NewCandidateRepo(pool)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	history := domain.Transcript{
		domain.QuestionEntry{Text: "What is JSX?", Difficulty: domain.DifficultyEasy, Timestamp: now},
		domain.AnswerEntry{Text: "Syntax sugar", Timestamp: now},
	}
	_, err = repo.Upsert(ctx, domain.CandidateRecord{ID: "c1", Position: 0, Name: "Ada", Email: "Ada@Example.com", Score: 6.5, CompletedAt: now, ChatHistory: history})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.CandidateRecord{ID: "c2", Position: 1, Name: "Bob", Email: "bob@example.com", Score: 8, CompletedAt: now})
	require.NoError(t, err)
	// Same email, different case: updates row c1 in place.
	stored, err := repo.Upsert(ctx, domain.CandidateRecord{ID: "ignored", Position: 9, Name: "Ada L.", Email: "ada@example.com", Score: 9.1, CompletedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "c1", stored.ID)
	assert.Equal(t, 0, stored.Position)

	recs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c1", recs[0].ID)
	assert.Equal(t, "Ada L.", recs[0].Name)
	assert.InDelta(t, 9.1, recs[0].Score, 0.001)

	require.NoError(t, repo.Delete(ctx, "c2"))
	require.ErrorIs(t, repo.Delete(ctx, "c2"), domain.ErrNotFound)
}

func TestRedisSessionStoreAndLimiter(t *testing.T) {
	t.Parallel()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")

	ctx := context.Background()
	rdb, err := redisstore.NewClient("redis://" + addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	require.Eventually(t, func() bool { return rdb.Ping(ctx).Err() == nil }, 30*time.Second, time.Second)

	store := redisstore.New(rdb, redisstore.WithSessionTTL(time.Hour))
	st := domain.InitialSessionState()
	st.Step = domain.StepAwaitingFields
	st.MissingFields = []string{"phone"}
	require.NoError(t, store.SaveSession(ctx, "s1", st))
	got, ok, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StepAwaitingFields, got.Step)
	assert.Equal(t, []string{"phone"}, got.MissingFields)

	archive := usecase.NewArchiveService(store, nil)
	_, err = archive.Upsert(ctx, domain.CandidateRecord{Name: "Ada", Email: "ada@example.com", CompletedAt: time.Now()})
	require.NoError(t, err)
	view, err := archive.View(ctx, "ada", "score")
	require.NoError(t, err)
	assert.Len(t, view, 1)

	lim := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		ratelimiter.BucketLLM: ratelimiter.NewBucketConfigFromPerMinute(2),
	})
	for i := 0; i < 2; i++ {
		ok, _, err := lim.Allow(ctx, ratelimiter.BucketLLM, 1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, retry, err := lim.Allow(ctx, ratelimiter.BucketLLM, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Positive(t, retry)
}

func TestTikaExtraction(t *testing.T) {
	t.Parallel()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "apache/tika:2.9.0.0",
		ExposedPorts: []string{"9998/tcp"},
		WaitingFor:   wait.ForHTTP("/version").WithPort("9998/tcp").WithStartupTimeout(90 * time.Second),
	}, "9998")

	ctx := context.Background()
	tc := tika.New("http://" + addr)
	require.NoError(t, tc.Ping(ctx))

	// An RTF résumé has no local reader and goes to Tika.
	rtf := []byte(`{\rtf1\ansi Grace Hopper\par grace@navy.mil\par +1 555 010 2000\par Compilers.}`)
	p := textextractor.New(textextractor.WithRemote(tc)).Extract(ctx, rtf, "application/rtf")
	assert.Equal(t, "Grace Hopper", p.Name)
	assert.Equal(t, "grace@navy.mil", p.Email)
	assert.NotEmpty(t, p.Phone)
}
