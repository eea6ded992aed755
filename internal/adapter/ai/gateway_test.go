package ai

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

type fakeClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) Chat(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

// askEasy requests an easy question and requires it to come from the provider.
func askEasy(t *testing.T, g *Gateway) string {
	t.Helper()
	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	require.True(t, ok)
	return q
}

func newTestGateway(c domain.AIClient) *Gateway {
	return NewGateway(c, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestGateway_GenerateQuestion_CleansText(t *testing.T) {
	fc := &fakeClient{replies: []string{"Question 1: What is JSX?\nWhy is it useful?"}}
	g := newTestGateway(fc)

	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "avoid hooks")
	assert.True(t, ok)
	assert.Equal(t, "What is JSX?", q)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "Candidate Context: avoid hooks")
	assert.Contains(t, fc.prompts[0], "Generate exactly ONE Easy level")
}

func TestGateway_GenerateQuestion_FallbackOnError(t *testing.T) {
	g := newTestGateway(&fakeClient{err: errors.New("boom")})

	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyHard, "")
	assert.False(t, ok)
	assert.Contains(t, mockQuestions[domain.DifficultyHard], q)
}

func TestGateway_GenerateQuestion_RefusalFallsBack(t *testing.T) {
	g := newTestGateway(&fakeClient{replies: []string{"I'm sorry, I cannot help with that."}})

	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyMedium, "")
	assert.False(t, ok)
	assert.Contains(t, mockQuestions[domain.DifficultyMedium], q)
}

func TestGateway_NilClientServesFallbacks(t *testing.T) {
	g := newTestGateway(nil)
	assert.Equal(t, "none", g.Provider())

	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	assert.False(t, ok)
	assert.Contains(t, mockQuestions[domain.DifficultyEasy], q)

	ev := g.EvaluateAnswer(t.Context(), "q", strings.Repeat("word ", 20), domain.DifficultyEasy)
	assert.GreaterOrEqual(t, ev.Score, 6)
	assert.LessOrEqual(t, ev.Score, 8)
	assert.NotEmpty(t, ev.Feedback)

	s := g.GenerateSummary(t.Context(), domain.SummaryInput{AnsweredQuestions: 0})
	assert.Contains(t, s, "basic understanding")
	assert.Contains(t, s, "fundamentals")
}

func TestGateway_EvaluateAnswer_ParsesJSON(t *testing.T) {
	fc := &fakeClient{replies: []string{`Sure! {"score": 8, "feedback": "Solid", "improvements": "More depth", "strengths": "Clear"}`}}
	g := newTestGateway(fc)

	ev := g.EvaluateAnswer(t.Context(), "What is JSX?", "JSX is a syntax extension for JavaScript", domain.DifficultyEasy)
	assert.Equal(t, 8, ev.Score)
	assert.Equal(t, "Solid", ev.Feedback)
	assert.Equal(t, "More depth", ev.Improvements)
	assert.Equal(t, "Clear", ev.Strengths)
	assert.Equal(t, domain.Breakdown{TechnicalAccuracy: 5, Clarity: 5, Examples: 5, Completeness: 5}, ev.Breakdown)
	assert.Contains(t, fc.prompts[0], "QUESTION: What is JSX?")
}

func TestGateway_GenerateSummary_UsesProviderText(t *testing.T) {
	fc := &fakeClient{replies: []string{"  Strong candidate.  "}}
	g := NewGateway(fc, WithTokenBudget(tokencount.NewEstimatingCounter(), "m", 1500))

	in := domain.SummaryInput{
		Candidate:         domain.CandidateProfile{Name: "Ada"},
		Scores:            []int{7, 8},
		AnsweredQuestions: 2,
		TotalQuestions:    6,
		ChatHistory: domain.Transcript{
			domain.QuestionEntry{Text: "What is JSX?", Difficulty: domain.DifficultyEasy},
			domain.AnswerEntry{Text: "A syntax"},
			domain.EvaluationEntry{ScoreSummary: "Score: 7/10 - ok"},
		},
	}
	assert.Equal(t, "Strong candidate.", g.GenerateSummary(t.Context(), in))
	p := fc.prompts[0]
	assert.Contains(t, p, "CANDIDATE: Ada")
	assert.Contains(t, p, "QUESTIONS ANSWERED: 2")
	assert.Contains(t, p, "AVERAGE SCORE: 7.5")
	assert.Contains(t, p, "Q (Easy): What is JSX?")
	assert.Contains(t, p, "E: Score: 7/10 - ok")
}

func TestGateway_SummaryFallbackMentionsAnswers(t *testing.T) {
	g := newTestGateway(&fakeClient{err: errors.New("down")})
	s := g.GenerateSummary(t.Context(), domain.SummaryInput{Scores: []int{5}, AnsweredQuestions: 1})
	assert.Contains(t, s, "promising understanding")
}

func TestGateway_CircuitOpensAfterFailures(t *testing.T) {
	fc := &fakeClient{err: errors.New("down")}
	clk := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("fake")
	cb.now = clk.Now
	g := NewGateway(fc, WithCircuitBreaker(cb))

	for i := 0; i < 5; i++ {
		_, _ = g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	}
	assert.Len(t, fc.prompts, 3, "calls stop once the circuit opens")
	assert.Equal(t, CircuitOpen, cb.GetState())
}

type denyLimiter struct {
	mu    sync.Mutex
	calls int
	allow int
	err   error
}

func (d *denyLimiter) Allow(_ context.Context, key string, _ int64) (bool, time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return true, 0, d.err
	}
	if d.calls <= d.allow {
		return true, 0, nil
	}
	return false, 2 * time.Second, nil
}

func TestGateway_LimiterDeniesCalls(t *testing.T) {
	fc := &fakeClient{replies: []string{"What is JSX?", "What is a hook?"}}
	lim := &denyLimiter{allow: 1}
	g := NewGateway(fc, WithRand(rand.New(rand.NewPCG(1, 2))), WithLimiter(lim, "llm"))

	assert.Equal(t, "What is JSX?", askEasy(t, g))
	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	assert.False(t, ok)
	assert.Contains(t, mockQuestions[domain.DifficultyEasy], q)
	assert.Len(t, fc.prompts, 1)
	assert.Equal(t, 2, lim.calls)
}

func TestGateway_LimiterErrorFailsOpen(t *testing.T) {
	fc := &fakeClient{replies: []string{"What is JSX?"}}
	g := NewGateway(fc, WithLimiter(&denyLimiter{err: errors.New("redis down")}, "llm"))

	assert.Equal(t, "What is JSX?", askEasy(t, g))
}

type switchLimiter struct {
	mu   sync.Mutex
	deny bool
}

func (l *switchLimiter) Allow(context.Context, string, int64) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.deny, time.Second, nil
}

func (l *switchLimiter) set(deny bool) {
	l.mu.Lock()
	l.deny = deny
	l.mu.Unlock()
}

func TestGateway_ThrottledRecoveryCallDoesNotWedgeBreaker(t *testing.T) {
	fc := &fakeClient{err: errors.New("down")}
	clk := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("fake")
	cb.now = clk.Now
	lim := &switchLimiter{}
	g := NewGateway(fc, WithCircuitBreaker(cb), WithLimiter(lim, "llm"), WithRand(rand.New(rand.NewPCG(1, 2))))

	for i := 0; i < 3; i++ {
		_, _ = g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	}
	require.Equal(t, CircuitOpen, cb.GetState())

	clk.Advance(time.Minute)
	lim.set(true)
	q, ok := g.GenerateQuestion(t.Context(), domain.DifficultyEasy, "")
	assert.False(t, ok)
	assert.Contains(t, mockQuestions[domain.DifficultyEasy], q)
	assert.Equal(t, CircuitOpen, cb.GetState())

	fc.mu.Lock()
	fc.err = nil
	fc.replies = []string{"What is JSX?"}
	fc.mu.Unlock()
	lim.set(false)

	assert.Equal(t, "What is JSX?", askEasy(t, g))
	assert.Equal(t, CircuitClosed, cb.GetState())
	assert.Len(t, fc.prompts, 4)
}
