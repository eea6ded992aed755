package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

var (
	errNoBackend   = errors.New("no ai backend configured")
	errCircuitOpen = errors.New("circuit open")
	errThrottled   = errors.New("provider call budget exhausted")
)

// CallLimiter throttles provider calls; ratelimiter.RedisLuaLimiter satisfies it.
type CallLimiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// Gateway implements domain.EvaluationGateway over one AIClient. Every method
// resolves; provider failures are logged and replaced with local content.
type Gateway struct {
	client  domain.AIClient
	breaker *CircuitBreaker
	cleaner *ResponseCleaner

	limiter    CallLimiter
	limiterKey string

	counter          *tokencount.Counter
	tokenModel       string
	transcriptBudget int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTokenBudget bounds the summary transcript to budget tokens counted for model.
func WithTokenBudget(counter *tokencount.Counter, model string, budget int) GatewayOption {
	return func(g *Gateway) {
		g.counter = counter
		g.tokenModel = model
		g.transcriptBudget = budget
	}
}

// WithRand replaces the random source used by fallbacks.
func WithRand(r *rand.Rand) GatewayOption {
	return func(g *Gateway) { g.rng = r }
}

// WithCircuitBreaker replaces the default provider breaker.
func WithCircuitBreaker(cb *CircuitBreaker) GatewayOption {
	return func(g *Gateway) { g.breaker = cb }
}

// WithLimiter spends one token of bucket key per provider call. A denied call
// is served from the fallback without reaching the provider.
func WithLimiter(l CallLimiter, key string) GatewayOption {
	return func(g *Gateway) {
		g.limiter = l
		g.limiterKey = key
	}
}

// NewGateway builds a gateway. A nil client serves fallback content only.
func NewGateway(client domain.AIClient, opts ...GatewayOption) *Gateway {
	provider := "none"
	if client != nil {
		provider = client.Provider()
	}
	g := &Gateway{
		client:  client,
		breaker: NewCircuitBreaker(provider),
		cleaner: NewResponseCleaner(),
		counter: tokencount.DefaultCounter,
		rng:     newRand(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Provider names the backend in use.
func (g *Gateway) Provider() string {
	if g.client == nil {
		return "none"
	}
	return g.client.Provider()
}

// call sends one prompt through the breaker inside a span.
func (g *Gateway) call(ctx context.Context, op, system, user string) (string, error) {
	if g.client == nil {
		return "", errNoBackend
	}
	if !g.breaker.ShouldAttempt() {
		return "", errCircuitOpen
	}
	if g.limiter != nil {
		// Limiter errors fail open.
		if ok, retry, _ := g.limiter.Allow(ctx, g.limiterKey, 1); !ok {
			g.breaker.Release()
			return "", fmt.Errorf("%w: retry in %s", errThrottled, retry)
		}
	}
	ctx, span := observability.Tracer().Start(ctx, "ai.gateway."+op)
	defer span.End()
	span.SetAttributes(attribute.String("ai.provider", g.client.Provider()))

	out, err := g.client.Chat(ctx, system, user)
	if err != nil {
		g.breaker.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("op=ai.%s: %w", op, err)
	}
	g.breaker.RecordSuccess()
	return out, nil
}

func (g *Gateway) fallback(ctx context.Context, op string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, errNoBackend):
		reason = "no_backend"
	case errors.Is(err, errCircuitOpen):
		reason = "circuit_open"
	case errors.Is(err, errThrottled):
		reason = "rate_limited"
	case errors.Is(err, domain.ErrSchemaInvalid):
		reason = "invalid_response"
	}
	observability.RecordAIFallback(op, reason)
	lg := observability.LoggerFromContext(ctx)
	if reason == "no_backend" {
		lg.Debug("ai gateway serving fallback", slog.String("op", op), slog.String("reason", reason))
		return
	}
	lg.Warn("ai gateway serving fallback", slog.String("provider", g.Provider()), slog.String("op", op), slog.String("reason", reason), slog.Any("error", err))
}

// GenerateQuestion returns one clean question for the difficulty. When the
// provider fails it returns a mock question and false.
func (g *Gateway) GenerateQuestion(ctx domain.Context, difficulty domain.Difficulty, contextHint string) (string, bool) {
	raw, err := g.call(ctx, "question", questionSystemPrompt, questionPrompt(difficulty, contextHint))
	if err != nil {
		g.fallback(ctx, "question", err)
		return g.mockQuestion(difficulty), false
	}
	q := g.cleaner.CleanQuestion(raw)
	if g.cleaner.ContainsMultipleQuestions(q) {
		q = g.cleaner.ExtractFirstQuestion(q)
	}
	if q == "" || g.cleaner.LooksLikeRefusal(q) {
		g.fallback(ctx, "question", fmt.Errorf("%w: unusable question text", domain.ErrSchemaInvalid))
		return g.mockQuestion(difficulty), false
	}
	return q, true
}

// EvaluateAnswer scores a non-empty answer.
func (g *Gateway) EvaluateAnswer(ctx domain.Context, question, answer string, difficulty domain.Difficulty) domain.Evaluation {
	raw, err := g.call(ctx, "evaluate", evaluationSystemPrompt, evaluationPrompt(question, answer, difficulty))
	if err != nil {
		g.fallback(ctx, "evaluate", err)
		return g.mockEvaluation(answer, difficulty)
	}
	return g.cleaner.ParseEvaluation(raw, answer)
}

// GenerateSummary writes the narrative summary of a finished interview.
func (g *Gateway) GenerateSummary(ctx domain.Context, in domain.SummaryInput) string {
	lines := transcriptLines(in.ChatHistory)
	dropped := 0
	if g.counter != nil && g.transcriptBudget > 0 {
		lines, dropped = g.counter.TrimToBudget(lines, g.transcriptBudget, g.tokenModel)
	}
	raw, err := g.call(ctx, "summary", summarySystemPrompt, summaryPrompt(in, lines, dropped))
	if err == nil {
		if s := strings.TrimSpace(raw); s != "" {
			return s
		}
		err = fmt.Errorf("%w: empty summary", domain.ErrSchemaInvalid)
	}
	g.fallback(ctx, "summary", err)
	return mockSummary(in)
}
