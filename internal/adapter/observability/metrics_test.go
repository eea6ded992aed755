package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	mw.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Result().StatusCode)
}

func TestInterviewMetricsHelpers(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(QuestionsIssuedTotal.WithLabelValues("Easy", "pool"))
	RecordQuestionIssued("Easy", "pool")
	assert.Equal(t, before+1, testutil.ToFloat64(QuestionsIssuedTotal.WithLabelValues("Easy", "pool")))

	beforeAns := testutil.ToFloat64(AnswersTotal.WithLabelValues("timeout", "false"))
	RecordAnswer("timeout", "Easy", false, 0)
	assert.Equal(t, beforeAns+1, testutil.ToFloat64(AnswersTotal.WithLabelValues("timeout", "false")))

	beforeDone := testutil.ToFloat64(InterviewsCompletedTotal)
	ObserveInterviewCompleted(7.0)
	assert.Equal(t, beforeDone+1, testutil.ToFloat64(InterviewsCompletedTotal))

	RecordAIRequest("groq", "question", 10*time.Millisecond)
	RecordAIFallback("evaluate", "error")
	RecordDuplicateQuestion()
	SetCircuitState("groq", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(AICircuitState.WithLabelValues("groq")))
	SessionOpened()
	SessionClosed()
	RecordStoreError("save")
}
