package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)
	AIFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Gateway operations answered with local fallback content",
		},
		[]string{"operation", "reason"},
	)
	AICircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_circuit_state",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half-open)",
		},
		[]string{"provider"},
	)

	QuestionsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_questions_issued_total",
			Help: "Questions issued by difficulty and source (gateway, alternative, pool)",
		},
		[]string{"difficulty", "source"},
	)
	DuplicateQuestionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_duplicate_questions_total",
			Help: "Generated questions rejected as near-duplicates",
		},
	)
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_answers_total",
			Help: "Answers recorded by trigger (manual, timeout) and whether they were graded",
		},
		[]string{"trigger", "graded"},
	)
	AnswerScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_answer_score",
			Help:    "Distribution of per-question scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"difficulty"},
	)
	InterviewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of completed interviews",
		},
	)
	FinalScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_final_score",
			Help:    "Distribution of final interview scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Number of session machines currently hosted",
		},
	)
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_store_errors_total",
			Help: "Failed session store operations",
		},
		[]string{"operation"},
	)
	ResumeExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_extractions_total",
			Help: "Résumé extractions by backend (text, docx, pdf, tika) and outcome",
		},
		[]string{"backend", "outcome"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIFallbacksTotal,
			AICircuitState,
			QuestionsIssuedTotal,
			DuplicateQuestionsTotal,
			AnswersTotal,
			AnswerScoreHistogram,
			InterviewsCompletedTotal,
			FinalScoreHistogram,
			ActiveSessions,
			StoreErrorsTotal,
			ResumeExtractionsTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordAIRequest counts one provider call and its latency.
func RecordAIRequest(provider, operation string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordAIFallback counts a gateway operation served from local content.
func RecordAIFallback(operation, reason string) {
	AIFallbacksTotal.WithLabelValues(operation, reason).Inc()
}

// SetCircuitState exports the breaker state of a provider.
func SetCircuitState(provider string, state int) {
	AICircuitState.WithLabelValues(provider).Set(float64(state))
}

// RecordQuestionIssued counts an issued question by where its text came from.
func RecordQuestionIssued(difficulty, source string) {
	QuestionsIssuedTotal.WithLabelValues(difficulty, source).Inc()
}

// RecordDuplicateQuestion counts a rejected near-duplicate.
func RecordDuplicateQuestion() { DuplicateQuestionsTotal.Inc() }

// RecordAnswer counts an answer and, when graded, observes its score.
func RecordAnswer(trigger, difficulty string, graded bool, score int) {
	g := "false"
	if graded {
		g = "true"
	}
	AnswersTotal.WithLabelValues(trigger, g).Inc()
	if score >= 0 && score <= 10 {
		AnswerScoreHistogram.WithLabelValues(difficulty).Observe(float64(score))
	}
}

// ObserveInterviewCompleted records a finished interview and its final score.
func ObserveInterviewCompleted(finalScore float64) {
	InterviewsCompletedTotal.Inc()
	if finalScore >= 0 && finalScore <= 10 {
		FinalScoreHistogram.Observe(finalScore)
	}
}

// SessionOpened and SessionClosed track hosted session machines.
func SessionOpened() { ActiveSessions.Inc() }
func SessionClosed() { ActiveSessions.Dec() }

// RecordStoreError counts a failed session store operation.
func RecordStoreError(operation string) {
	StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordExtraction counts one résumé extraction attempt.
func RecordExtraction(backend string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	ResumeExtractionsTotal.WithLabelValues(backend, outcome).Inc()
}
