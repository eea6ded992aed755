package domain

import "time"

// AIClient (port) is a single LLM backend.
type AIClient interface {
	// Chat sends a system and user prompt and returns the raw assistant message.
	Chat(ctx Context, systemPrompt, userPrompt string) (string, error)
	// Provider names the backend for logs and metrics.
	Provider() string
}

// EvaluationGateway (port) supplies questions, evaluations and summaries.
// Every method resolves: failures are replaced by local fallback content.
type EvaluationGateway interface {
	// GenerateQuestion reports false when the text is fallback content rather
	// than a provider question.
	GenerateQuestion(ctx Context, difficulty Difficulty, contextHint string) (string, bool)
	EvaluateAnswer(ctx Context, question, answer string, difficulty Difficulty) Evaluation
	GenerateSummary(ctx Context, in SummaryInput) string
}

// SessionStore (port) durably persists session state. Each write is a full replace.
type SessionStore interface {
	LoadSession(ctx Context, sessionID string) (SessionState, bool, error)
	SaveSession(ctx Context, sessionID string, st SessionState) error
	// InterviewInProgress reads the lightweight resume-prompt flag.
	InterviewInProgress(ctx Context, sessionID string) (bool, error)
	SetInterviewInProgress(ctx Context, sessionID string, inProgress bool) error
	Ping(ctx Context) error
}

// ArchiveRepository (port) persists completed candidate records keyed by email.
// Upsert keeps the stored Position and ID of an existing email and returns
// the record as stored; the email match and the write are one atomic step.
type ArchiveRepository interface {
	List(ctx Context) ([]CandidateRecord, error)
	Upsert(ctx Context, rec CandidateRecord) (CandidateRecord, error)
	Delete(ctx Context, id string) error
}

// ResumeExtractor (port) turns an uploaded document into a best-effort profile.
// It never fails: fields it cannot find are returned empty.
type ResumeExtractor interface {
	Extract(ctx Context, data []byte, mimeType string) CandidateProfile
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler (port) runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the wall clock.
type SystemScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
