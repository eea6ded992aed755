package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
	// ErrInvalidTransition is returned when an intent is not legal in the current step.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSessionClosed is returned for intents dispatched after session teardown.
	ErrSessionClosed = errors.New("session closed")
)

// TotalQuestions is the fixed length of an interview.
const TotalQuestions = 6

// Placeholder answers recorded when the candidate did not respond.
const (
	NoAnswerProvided  = "No answer provided"
	TimeExpiredAnswer = "No answer provided (time expired)"
)

// Step enumerates the interview session steps.
type Step string

const (
	StepUploading      Step = "uploading"
	StepAwaitingFields Step = "awaiting_fields"
	StepInterviewing   Step = "interviewing"
	StepCompleted      Step = "completed"
)

// Difficulty of a question. Values match the labels used in prompts.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists all difficulties in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// DifficultyForIndex derives the difficulty of the question at a zero-based index:
// 0-1 Easy, 2-3 Medium, 4 and above Hard.
func DifficultyForIndex(index int) Difficulty {
	switch {
	case index < 2:
		return DifficultyEasy
	case index < 4:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// TimeLimitSeconds returns the answer window for the difficulty.
func (d Difficulty) TimeLimitSeconds() int {
	switch d {
	case DifficultyMedium:
		return 60
	case DifficultyHard:
		return 120
	default:
		return 20
	}
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// CandidateProfile is produced by résumé extraction or manual entry.
// Email is the natural key used for archive de-duplication.
type CandidateProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	RawText string `json:"raw_text,omitempty"`
}

// Question is the single active question of a session.
type Question struct {
	Text             string     `json:"text"`
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
}

// NewQuestion builds a question with the time limit of its difficulty.
func NewQuestion(text string, d Difficulty) Question {
	return Question{Text: text, Difficulty: d, TimeLimitSeconds: d.TimeLimitSeconds()}
}

// Breakdown holds per-criterion scores of an evaluation.
type Breakdown struct {
	TechnicalAccuracy int `json:"technical_accuracy"`
	Clarity           int `json:"clarity"`
	Examples          int `json:"examples"`
	Completeness      int `json:"completeness"`
}

// Evaluation is produced exactly once per answered or timed-out question.
// Invariants: 0 <= Score <= 10.
type Evaluation struct {
	Score        int       `json:"score"`
	Feedback     string    `json:"feedback"`
	Improvements string    `json:"improvements"`
	Strengths    string    `json:"strengths"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Progress tracks how far the interview went.
// Invariant: len(Scores) == CurrentQuestionIndex.
type Progress struct {
	CurrentQuestionIndex int   `json:"current_question_index"`
	Scores               []int `json:"scores"`
}

// SessionState is the aggregate owned by one interview session.
type SessionState struct {
	Step                 Step              `json:"step"`
	Profile              *CandidateProfile `json:"profile"`
	MissingFields        []string          `json:"missing_fields"`
	ValidationErrors     []string          `json:"validation_errors,omitempty"`
	ChatHistory          Transcript        `json:"chat_history"`
	ActiveQuestion       *Question         `json:"active_question"`
	TimerSeconds         int               `json:"timer_seconds"`
	Progress             Progress          `json:"progress"`
	Paused               bool              `json:"paused"`
	PausedTimerSnapshot  *int              `json:"paused_timer_snapshot"`
	InterviewEverStarted bool              `json:"interview_ever_started"`
	CompletedRecord      *CandidateRecord  `json:"completed_record"`
	// AnswerDraft is the buffered answer text submitted on timer expiry.
	AnswerDraft string `json:"answer_draft,omitempty"`
}

// InitialSessionState returns the state of a fresh session.
func InitialSessionState() SessionState {
	return SessionState{
		Step:          StepUploading,
		MissingFields: []string{},
		ChatHistory:   Transcript{},
		Progress:      Progress{Scores: []int{}},
	}
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.MissingFields = append([]string{}, s.MissingFields...)
	if s.ValidationErrors != nil {
		out.ValidationErrors = append([]string{}, s.ValidationErrors...)
	}
	out.ChatHistory = s.ChatHistory.Clone()
	if s.ActiveQuestion != nil {
		q := *s.ActiveQuestion
		out.ActiveQuestion = &q
	}
	out.Progress.Scores = append([]int{}, s.Progress.Scores...)
	if s.PausedTimerSnapshot != nil {
		v := *s.PausedTimerSnapshot
		out.PausedTimerSnapshot = &v
	}
	if s.CompletedRecord != nil {
		r := s.CompletedRecord.Clone()
		out.CompletedRecord = &r
	}
	return out
}

// CandidateRecord is a finalized interview snapshot stored in the archive.
type CandidateRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Score       float64    `json:"score"` // [0,10], one decimal
	Summary     string     `json:"summary"`
	ChatHistory Transcript `json:"chat_history"`
	CompletedAt time.Time  `json:"completed_at"`
	ResumeText  string     `json:"resume_text"`
	// Position is the insertion slot in the archive; replacing a record keeps it.
	Position int `json:"position"`
}

// Clone returns a deep copy of the record.
func (r CandidateRecord) Clone() CandidateRecord {
	out := r
	out.ChatHistory = r.ChatHistory.Clone()
	return out
}

// SummaryInput is the material handed to the gateway to write the final summary.
type SummaryInput struct {
	Candidate         CandidateProfile
	Scores            []int
	ChatHistory       Transcript
	TotalQuestions    int
	AnsweredQuestions int
}

// AverageScore returns the mean of Scores or 0 when empty.
func (in SummaryInput) AverageScore() float64 {
	if len(in.Scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range in.Scores {
		sum += s
	}
	return float64(sum) / float64(len(in.Scores))
}

// Context is an alias so ports read naturally; adapters pass context.Context through.
type Context = context.Context
