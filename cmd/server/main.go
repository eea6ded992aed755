// Command server starts the AI interview assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai/real"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/ai-interview-assistant/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/store/memory"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/store/redisstore"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/textextractor"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-assistant/internal/app"
	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
	"github.com/fairyhunter13/ai-interview-assistant/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-assistant/internal/usecase"
)

// storage bundles the session store and archive repository selected by config.
type storage interface {
	domain.SessionStore
	domain.ArchiveRepository
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	deps := app.Dependencies{}

	// Session store: Redis when configured, otherwise in-process.
	var (
		store storage
		rdb   *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Error("redis client failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		store = redisstore.New(rdb, redisstore.WithSessionTTL(cfg.SessionTTL))
	} else {
		if cfg.IsProd() {
			slog.Warn("REDIS_URL not set; sessions and archive are kept in memory only")
		}
		store = memory.New()
	}
	deps.Store = store

	// Archive mirror.
	var mirror domain.ArchiveRepository
	if cfg.DBURL != "" {
		dbPool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Error("db connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbPool.Close()
		repo := postgres.NewCandidateRepo(dbPool)
		if err := repo.Migrate(ctx); err != nil {
			slog.Error("db migrate failed", slog.Any("error", err))
			os.Exit(1)
		}
		mirror = repo
		deps.DB = repo
	}
	archive := usecase.NewArchiveService(store, mirror)

	gateway, err := buildGateway(ctx, cfg, rdb)
	if err != nil {
		slog.Error("ai gateway setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("ai gateway ready", slog.String("provider", gateway.Provider()))

	questions := usecase.DefaultQuestionPool()
	if cfg.QuestionPoolFile != "" {
		questions, err = usecase.LoadQuestionPool(cfg.QuestionPoolFile)
		if err != nil {
			slog.Error("question pool load failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	extractorOpts := []textextractor.Option{textextractor.WithPDFLicense(cfg.UnidocLicenseKey)}
	if cfg.TikaURL != "" {
		tc := tika.New(cfg.TikaURL)
		extractorOpts = append(extractorOpts, textextractor.WithRemote(tc))
		deps.Tika = tc
	}
	extractor := textextractor.New(extractorOpts...)

	sessions := usecase.NewSessionRegistry(usecase.SessionDeps{
		Gateway:   gateway,
		Store:     store,
		Archive:   archive,
		Extractor: extractor,
		Pool:      questions,
	})

	srv := httpserver.NewServer(cfg, sessions, archive, app.BuildReadinessChecks(deps)...)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
	// Timers stop after in-flight requests drain; state is already persisted.
	sessions.CloseAll()
	slog.Info("server stopped")
}

// buildGateway selects the provider client and layers the token budget and
// the shared call limiter on top.
func buildGateway(ctx context.Context, cfg config.Config, rdb *redis.Client) (*ai.Gateway, error) {
	var (
		client domain.AIClient
		model  string
	)
	switch cfg.Provider() {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY not set; serving fallback content only")
			break
		}
		gc, err := gemini.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, model = gc, cfg.GeminiModel
	case "groq":
		if cfg.GroqAPIKey == "" {
			slog.Warn("GROQ_API_KEY not set; serving fallback content only")
			break
		}
		client, model = real.New(cfg), cfg.GroqModel
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", domain.ErrInvalidArgument, cfg.LLMProvider)
	}

	opts := []ai.GatewayOption{
		ai.WithTokenBudget(tokencount.NewCounter(), model, cfg.SummaryTranscriptTokens),
	}
	if rdb != nil && cfg.LLMRateLimitPerMin > 0 {
		limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			ratelimiter.BucketLLM: ratelimiter.NewBucketConfigFromPerMinute(cfg.LLMRateLimitPerMin),
		})
		opts = append(opts, ai.WithLimiter(limiter, ratelimiter.BucketLLM))
	}
	return ai.NewGateway(client, opts...), nil
}
