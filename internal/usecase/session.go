// Package usecase contains the interview session machine and the candidate archive.
package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const (
	// minGradableLen is the shortest trimmed answer sent to the evaluator.
	minGradableLen = 3
	// duplicatePrefixLen is how much of a question takes part in the near-duplicate check.
	duplicatePrefixLen = 50
	// recentQuestionWindow is how many previous questions a new one is checked against.
	recentQuestionWindow = 3

	alternativeQuestionHint = " Generate a different type of question, not about React components."
	manualEntryResumeText   = "Manual entry"
)

// Answer triggers, used as metric labels.
const (
	TriggerManual  = "manual"
	TriggerTimeout = "timeout"
)

// Question sources, used as metric labels.
const (
	SourceGateway     = "gateway"
	SourceAlternative = "alternative"
	SourcePool        = "pool"
)

// SessionDeps are the collaborators of a Session. Zero fields get defaults,
// except Gateway, Store and Archive which are required.
type SessionDeps struct {
	Gateway   domain.EvaluationGateway
	Store     domain.SessionStore
	Archive   *ArchiveService
	Extractor domain.ResumeExtractor
	Validator *ProfileValidator
	Pool      *QuestionPool
	Scheduler domain.Scheduler
	Now       func() time.Time
	Intn      func(int) int
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.Validator == nil {
		d.Validator = NewProfileValidator()
	}
	if d.Pool == nil {
		d.Pool = DefaultQuestionPool()
	}
	if d.Scheduler == nil {
		d.Scheduler = domain.SystemScheduler{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Intn == nil {
		d.Intn = rand.IntN
	}
	return d
}

// Snapshot is a copy of the session state as rendered to clients.
type Snapshot struct {
	SessionID string `json:"session_id"`
	domain.SessionState
	// ResumePrompt is set while a restored interview waits for a resume or discard decision.
	ResumePrompt bool `json:"resume_prompt"`
	// Busy is set while an evaluation or question issuance is in flight.
	Busy bool `json:"busy"`
}

// Session is the interview state machine of one candidate session. All
// intents are safe for concurrent use; gateway calls run with the session
// mutex released, guarded by the issuing and loading flags.
type Session struct {
	id   string
	deps SessionDeps
	bg   domain.Context

	mu    sync.Mutex
	state domain.SessionState
	// issuing and loading are the single-flight flags for issuance and evaluation.
	issuing bool
	loading bool
	closed  bool
	// epoch changes on reset and close; in-flight work started under an older epoch is discarded.
	epoch    uint64
	timerGen uint64
	timer    domain.Timer

	resumePrompt  bool
	resumeChecked bool
}

// NewSession returns a session in the Uploading step.
func NewSession(ctx domain.Context, id string, deps SessionDeps) *Session {
	s := newSession(ctx, id, deps, domain.InitialSessionState())
	s.resumeChecked = true
	return s
}

// RestoreSession rebuilds a session from persisted state. The resume check
// has not run yet; call CheckResume before dispatching other intents.
func RestoreSession(ctx domain.Context, id string, deps SessionDeps, st domain.SessionState) *Session {
	if err := checkRestoredState(st); err != nil {
		observability.LoggerFromContext(ctx).Warn("discarding inconsistent session state",
			slog.String("session_id", id), slog.Any("error", err))
		st = domain.InitialSessionState()
	}
	return newSession(ctx, id, deps, st)
}

func newSession(ctx domain.Context, id string, deps SessionDeps, st domain.SessionState) *Session {
	lg := observability.LoggerFromContext(ctx).With(slog.String("session_id", id))
	return &Session{
		id:    id,
		deps:  deps.withDefaults(),
		bg:    observability.ContextWithLogger(observability.DetachedContext(ctx), lg),
		state: st,
	}
}

func checkRestoredState(st domain.SessionState) error {
	switch st.Step {
	case domain.StepUploading, domain.StepAwaitingFields, domain.StepInterviewing, domain.StepCompleted:
	default:
		return fmt.Errorf("%w: unknown step %q", domain.ErrSchemaInvalid, st.Step)
	}
	p := st.Progress
	if len(p.Scores) != p.CurrentQuestionIndex || p.CurrentQuestionIndex > domain.TotalQuestions {
		return fmt.Errorf("%w: %d scores at question index %d", domain.ErrSchemaInvalid, len(p.Scores), p.CurrentQuestionIndex)
	}
	if st.ActiveQuestion != nil && p.CurrentQuestionIndex >= domain.TotalQuestions {
		return fmt.Errorf("%w: active question after the last index", domain.ErrSchemaInvalid)
	}
	if st.Step == domain.StepInterviewing && st.Profile == nil {
		return fmt.Errorf("%w: interviewing without a profile", domain.ErrSchemaInvalid)
	}
	return nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// intentContext keeps the request logger and id but not the request deadline:
// session work continues after the caller goes away.
func (s *Session) intentContext(ctx domain.Context) domain.Context {
	lg := observability.LoggerFromContext(ctx).With(slog.String("session_id", s.id))
	return observability.ContextWithLogger(observability.DetachedContext(ctx), lg)
}

// unlocked runs f with the session mutex released.
func (s *Session) unlocked(f func()) {
	s.mu.Unlock()
	defer s.mu.Lock()
	f()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:    s.id,
		SessionState: s.state.Clone(),
		ResumePrompt: s.resumePrompt,
		Busy:         s.loading || s.issuing,
	}
}

func (s *Session) persistLocked(ctx domain.Context) {
	if err := s.deps.Store.SaveSession(ctx, s.id, s.state.Clone()); err != nil {
		observability.RecordStoreError("save_session")
		observability.LoggerFromContext(ctx).Warn("session persist failed", slog.Any("error", err))
	}
}

func (s *Session) setInProgressLocked(ctx domain.Context, v bool) {
	if err := s.deps.Store.SetInterviewInProgress(ctx, s.id, v); err != nil {
		observability.RecordStoreError("set_in_progress")
		observability.LoggerFromContext(ctx).Warn("interview flag write failed", slog.Any("error", err))
	}
}

func (s *Session) logTransition(ctx domain.Context, msg string) {
	observability.LoggerFromContext(ctx).Info(msg,
		slog.String("step", string(s.state.Step)),
		slog.Int("question_index", s.state.Progress.CurrentQuestionIndex))
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CheckResume runs the resume-after-reload check once per load. It reports
// whether this call raised the resume prompt. An interview that does not
// qualify for the prompt continues directly.
func (s *Session) CheckResume(ctx domain.Context) (Snapshot, bool, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, false, domain.ErrSessionClosed
	}
	if s.resumeChecked {
		return s.snapshotLocked(), false, nil
	}
	s.resumeChecked = true

	flag, err := s.deps.Store.InterviewInProgress(ctx, s.id)
	if err != nil {
		observability.RecordStoreError("get_in_progress")
		observability.LoggerFromContext(ctx).Warn("interview flag read failed", slog.Any("error", err))
	}
	st := s.state
	if flag && st.Step != domain.StepCompleted &&
		(st.Paused || (st.Step == domain.StepInterviewing && len(st.ChatHistory) > 0)) {
		s.resumePrompt = true
		s.logTransition(ctx, "resume prompt raised")
		return s.snapshotLocked(), true, nil
	}
	if st.Step == domain.StepInterviewing {
		s.resumeLocked(ctx)
	}
	return s.snapshotLocked(), false, nil
}

// ResolveResume answers the resume prompt: resume keeps the state untouched,
// discard resets to Uploading and clears the in-progress flag.
func (s *Session) ResolveResume(ctx domain.Context, resume bool) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	if !s.resumePrompt {
		return s.snapshotLocked(), fmt.Errorf("%w: no resume decision pending", domain.ErrInvalidTransition)
	}
	s.resumePrompt = false
	if !resume {
		s.resetLocked(ctx)
		s.logTransition(ctx, "restored interview discarded")
		return s.snapshotLocked(), nil
	}
	s.logTransition(ctx, "restored interview resumed")
	if s.state.Step == domain.StepInterviewing {
		s.resumeLocked(ctx)
	}
	return s.snapshotLocked(), nil
}

// resumeLocked restarts the machinery of an interview that was running
// before the reload: the countdown, a pending issuance or completion.
// While an evaluation or issuance is in flight that path owns the next step.
func (s *Session) resumeLocked(ctx domain.Context) {
	if s.state.Paused || s.loading || s.issuing {
		return
	}
	if s.state.ActiveQuestion == nil {
		if s.state.Progress.CurrentQuestionIndex >= domain.TotalQuestions {
			epoch := s.epoch
			s.loading = true
			defer func() {
				if s.epoch == epoch {
					s.loading = false
				}
			}()
			s.completeLocked(ctx, epoch)
			return
		}
		s.ensureQuestionLocked(ctx)
		return
	}
	if s.state.TimerSeconds <= 0 {
		s.expireLocked(ctx)
		return
	}
	s.armTimerLocked()
}

// Upload extracts a profile from a résumé and validates it.
func (s *Session) Upload(ctx domain.Context, data []byte, mimeType string) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProfileStepLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if s.loading {
		return s.snapshotLocked(), fmt.Errorf("%w: upload already in progress", domain.ErrConflict)
	}
	if s.deps.Extractor == nil {
		return s.snapshotLocked(), fmt.Errorf("%w: no resume extractor configured", domain.ErrInternal)
	}

	epoch := s.epoch
	s.loading = true
	held := true
	release := func() {
		if held && s.epoch == epoch {
			s.loading = false
		}
		held = false
	}
	defer release()
	var profile domain.CandidateProfile
	s.unlocked(func() { profile = s.deps.Extractor.Extract(ctx, data, mimeType) })
	if s.epoch != epoch {
		return s.snapshotLocked(), nil
	}
	release()
	if err := s.requireProfileStepLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.applyProfileLocked(ctx, profile)
	return s.snapshotLocked(), nil
}

// SubmitProfile applies manually entered fields. In AwaitingFields the
// entered fields replace the extracted ones and the résumé text is kept.
func (s *Session) SubmitProfile(ctx domain.Context, name, email, phone string) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProfileStepLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if s.loading {
		return s.snapshotLocked(), fmt.Errorf("%w: upload in progress", domain.ErrConflict)
	}
	p := domain.CandidateProfile{Name: name, Email: email, Phone: phone}
	if s.state.Step == domain.StepAwaitingFields && s.state.Profile != nil {
		p.RawText = s.state.Profile.RawText
	}
	s.applyProfileLocked(ctx, p)
	return s.snapshotLocked(), nil
}

func (s *Session) requireProfileStepLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.resumePrompt || !s.resumeChecked {
		return fmt.Errorf("%w: resume decision pending", domain.ErrInvalidTransition)
	}
	if s.state.Step != domain.StepUploading && s.state.Step != domain.StepAwaitingFields {
		return fmt.Errorf("%w: profile cannot change in step %s", domain.ErrInvalidTransition, s.state.Step)
	}
	return nil
}

func (s *Session) applyProfileLocked(ctx domain.Context, p domain.CandidateProfile) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	s.state.Profile = &p

	missing, msgs := s.deps.Validator.Validate(p)
	if len(missing) > 0 {
		s.state.Step = domain.StepAwaitingFields
		s.state.MissingFields = missing
		s.state.ValidationErrors = msgs
		s.persistLocked(ctx)
		s.logTransition(ctx, "profile incomplete")
		return
	}
	s.startInterviewLocked(ctx)
}

func (s *Session) startInterviewLocked(ctx domain.Context) {
	s.stopTimerLocked()
	s.state.Step = domain.StepInterviewing
	s.state.MissingFields = []string{}
	s.state.ValidationErrors = nil
	s.state.InterviewEverStarted = true
	s.state.Progress = domain.Progress{Scores: []int{}}
	s.state.ChatHistory = domain.Transcript{}
	s.state.ActiveQuestion = nil
	s.state.TimerSeconds = 0
	s.state.Paused = false
	s.state.PausedTimerSnapshot = nil
	s.state.CompletedRecord = nil
	s.state.AnswerDraft = ""
	s.persistLocked(ctx)
	s.setInProgressLocked(ctx, true)
	s.logTransition(ctx, "interview started")
	s.ensureQuestionLocked(ctx)
}

func (s *Session) requireInterviewLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.resumePrompt || !s.resumeChecked {
		return fmt.Errorf("%w: resume decision pending", domain.ErrInvalidTransition)
	}
	if s.state.Step != domain.StepInterviewing {
		return fmt.Errorf("%w: not interviewing (step %s)", domain.ErrInvalidTransition, s.state.Step)
	}
	return nil
}

// SetDraft buffers the answer text that is submitted when the timer expires.
func (s *Session) SetDraft(ctx domain.Context, text string) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInterviewLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.state.AnswerDraft = text
	s.persistLocked(ctx)
	return s.snapshotLocked(), nil
}

// Submit answers the active question. It reports false without changing
// anything when an evaluation is already running, the session is paused or
// no question is active.
func (s *Session) Submit(ctx domain.Context, answer string) (Snapshot, bool, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInterviewLocked(); err != nil {
		return s.snapshotLocked(), false, err
	}
	if strings.TrimSpace(answer) == "" {
		return s.snapshotLocked(), false, fmt.Errorf("%w: answer is empty", domain.ErrInvalidArgument)
	}
	if s.loading || s.state.Paused || s.state.ActiveQuestion == nil {
		return s.snapshotLocked(), false, nil
	}
	s.submitLocked(ctx, answer, TriggerManual)
	return s.snapshotLocked(), true, nil
}

// IsUngradable reports whether an answer is scored 0 without calling the evaluator.
func IsUngradable(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == domain.NoAnswerProvided || a == domain.TimeExpiredAnswer || len([]rune(a)) < minGradableLen
}

// UnansweredEvaluation is the fixed evaluation of an ungradable answer.
func UnansweredEvaluation() domain.Evaluation {
	return domain.Evaluation{
		Score:        0,
		Feedback:     "No substantial answer was provided for this question.",
		Improvements: "Please provide a more detailed response.",
		Strengths:    "None - question was not properly attempted",
	}
}

// submitLocked records the answer, evaluates it and advances the interview.
// Shared by manual submission and timer expiry.
func (s *Session) submitLocked(ctx domain.Context, answer, trigger string) {
	q := *s.state.ActiveQuestion
	epoch := s.epoch
	s.loading = true
	held := true
	release := func() {
		if held && s.epoch == epoch {
			s.loading = false
		}
		held = false
	}
	defer release()

	s.stopTimerLocked()
	s.state.AnswerDraft = ""
	s.state.ChatHistory = append(s.state.ChatHistory, domain.AnswerEntry{Text: answer, Timestamp: s.deps.Now()})
	s.persistLocked(ctx)

	graded := !IsUngradable(answer)
	var ev domain.Evaluation
	if graded {
		s.unlocked(func() {
			ev = s.deps.Gateway.EvaluateAnswer(ctx, q.Text, strings.TrimSpace(answer), q.Difficulty)
		})
		if s.epoch != epoch {
			return
		}
		ev.Score = min(max(ev.Score, 0), 10)
	} else {
		ev = UnansweredEvaluation()
	}

	s.state.ChatHistory = append(s.state.ChatHistory, domain.EvaluationEntry{
		ScoreSummary: fmt.Sprintf("Score: %d/10 - %s", ev.Score, ev.Feedback),
		Evaluation:   ev,
		Timestamp:    s.deps.Now(),
	})
	s.state.Progress.Scores = append(s.state.Progress.Scores, ev.Score)
	s.state.Progress.CurrentQuestionIndex++
	s.state.ActiveQuestion = nil
	s.state.TimerSeconds = 0
	observability.RecordAnswer(trigger, string(q.Difficulty), graded, ev.Score)
	observability.LoggerFromContext(ctx).Info("answer evaluated",
		slog.String("trigger", trigger),
		slog.Int("score", ev.Score),
		slog.Int("question_index", s.state.Progress.CurrentQuestionIndex))

	if s.state.Progress.CurrentQuestionIndex >= domain.TotalQuestions {
		s.persistLocked(ctx)
		s.completeLocked(ctx, epoch)
		return
	}
	s.persistLocked(ctx)
	release()
	s.ensureQuestionLocked(ctx)
}

// completeLocked builds the candidate record, archives it and ends the interview.
func (s *Session) completeLocked(ctx domain.Context, epoch uint64) {
	s.state.ActiveQuestion = nil
	s.state.TimerSeconds = 0
	var profile domain.CandidateProfile
	if s.state.Profile != nil {
		profile = *s.state.Profile
	}
	scores := append([]int{}, s.state.Progress.Scores...)
	answered := 0
	sum := 0
	for _, sc := range scores {
		sum += sc
		if sc > 0 {
			answered++
		}
	}
	final := math.Round(float64(sum)/float64(domain.TotalQuestions)*10) / 10
	in := domain.SummaryInput{
		Candidate:         profile,
		Scores:            scores,
		ChatHistory:       s.state.ChatHistory.Clone(),
		TotalQuestions:    domain.TotalQuestions,
		AnsweredQuestions: answered,
	}

	var summary string
	s.unlocked(func() { summary = s.deps.Gateway.GenerateSummary(ctx, in) })
	if s.epoch != epoch {
		return
	}

	resumeText := profile.RawText
	if strings.TrimSpace(resumeText) == "" {
		resumeText = manualEntryResumeText
	}
	rec := domain.CandidateRecord{
		Name:        profile.Name,
		Email:       profile.Email,
		Phone:       profile.Phone,
		Score:       final,
		Summary:     summary,
		ChatHistory: s.state.ChatHistory.Clone(),
		CompletedAt: s.deps.Now(),
		ResumeText:  resumeText,
	}
	stored, err := s.deps.Archive.Upsert(ctx, rec)
	if err != nil {
		observability.RecordStoreError("archive_upsert")
		observability.LoggerFromContext(ctx).Error("archiving candidate failed", slog.Any("error", err))
		stored = rec
	}
	s.state.CompletedRecord = &stored
	s.state.Step = domain.StepCompleted
	s.state.Paused = false
	s.state.PausedTimerSnapshot = nil
	s.persistLocked(ctx)
	s.setInProgressLocked(ctx, false)
	observability.ObserveInterviewCompleted(final)
	s.logTransition(ctx, "interview completed")
}

// ensureQuestionLocked issues the next question when the session needs one.
// It is a no-op unless interviewing, unpaused, without an active question,
// below the last index and with no issuance in flight.
func (s *Session) ensureQuestionLocked(ctx domain.Context) {
	if s.closed || s.resumePrompt || s.issuing ||
		s.state.Step != domain.StepInterviewing ||
		s.state.ActiveQuestion != nil ||
		s.state.Paused ||
		s.state.Progress.CurrentQuestionIndex >= domain.TotalQuestions {
		return
	}
	epoch := s.epoch
	index := s.state.Progress.CurrentQuestionIndex
	d := domain.DifficultyForIndex(index)
	s.issuing = true
	defer func() {
		if s.epoch == epoch {
			s.issuing = false
		}
	}()

	name := ""
	if s.state.Profile != nil {
		name = s.state.Profile.Name
	}
	hint := fmt.Sprintf("Candidate: %s, Position: Full Stack Developer", name)
	recent := s.state.ChatHistory.RecentQuestions(recentQuestionWindow)

	var text, source string
	s.unlocked(func() { text, source = s.pickQuestion(ctx, d, hint, recent) })
	if s.epoch != epoch || s.state.Step != domain.StepInterviewing ||
		s.state.ActiveQuestion != nil || s.state.Progress.CurrentQuestionIndex != index {
		return
	}

	q := domain.NewQuestion(text, d)
	s.state.ActiveQuestion = &q
	s.state.AnswerDraft = ""
	if s.state.Paused {
		limit := q.TimeLimitSeconds
		s.state.PausedTimerSnapshot = &limit
		s.state.TimerSeconds = 0
	} else {
		s.state.TimerSeconds = q.TimeLimitSeconds
	}
	s.state.ChatHistory = append(s.state.ChatHistory, domain.QuestionEntry{Text: text, Difficulty: d, Timestamp: s.deps.Now()})
	s.persistLocked(ctx)
	observability.RecordQuestionIssued(string(d), source)
	observability.LoggerFromContext(ctx).Info("question issued",
		slog.Int("question_index", index),
		slog.String("difficulty", string(d)),
		slog.String("source", source))
	s.armTimerLocked()
}

// pickQuestion asks the gateway for a question, retries once with a
// diversifying hint on a near-duplicate and falls back to the canned pool.
// A gateway failure at either step goes straight to the pool.
func (s *Session) pickQuestion(ctx domain.Context, d domain.Difficulty, hint string, recent []string) (string, string) {
	q, ok := s.deps.Gateway.GenerateQuestion(ctx, d, hint)
	q = strings.TrimSpace(q)
	if !ok || q == "" {
		return s.deps.Pool.Pick(d, s.deps.Intn), SourcePool
	}
	if !IsNearDuplicate(q, recent) {
		return q, SourceGateway
	}
	observability.RecordDuplicateQuestion()
	alt, ok := s.deps.Gateway.GenerateQuestion(ctx, d, hint+alternativeQuestionHint)
	alt = strings.TrimSpace(alt)
	if !ok {
		return s.deps.Pool.Pick(d, s.deps.Intn), SourcePool
	}
	if alt != "" && !IsNearDuplicate(alt, recent) {
		return alt, SourceAlternative
	}
	observability.RecordDuplicateQuestion()
	return s.deps.Pool.Pick(d, s.deps.Intn), SourcePool
}

// IsNearDuplicate reports whether the first characters of candidate and of
// any recent question contain one another, ignoring case and trailing
// punctuation.
func IsNearDuplicate(candidate string, recent []string) bool {
	c := duplicateKey(candidate)
	if c == "" {
		return false
	}
	for _, r := range recent {
		k := duplicateKey(r)
		if k == "" {
			continue
		}
		if strings.Contains(k, c) || strings.Contains(c, k) {
			return true
		}
	}
	return false
}

func duplicateKey(q string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(q)))
	if len(r) > duplicatePrefixLen {
		r = r[:duplicatePrefixLen]
	}
	return strings.TrimRight(string(r), "?.!: ")
}

// Pause freezes the countdown, keeping the remaining seconds.
func (s *Session) Pause(ctx domain.Context) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInterviewLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if s.state.Paused {
		return s.snapshotLocked(), nil
	}
	s.stopTimerLocked()
	remaining := s.state.TimerSeconds
	s.state.PausedTimerSnapshot = &remaining
	s.state.TimerSeconds = 0
	s.state.Paused = true
	s.persistLocked(ctx)
	s.logTransition(ctx, "interview paused")
	return s.snapshotLocked(), nil
}

// Continue restores the frozen countdown and issues a question if none is active.
func (s *Session) Continue(ctx domain.Context) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInterviewLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if !s.state.Paused {
		return s.snapshotLocked(), nil
	}
	s.state.Paused = false
	if s.state.PausedTimerSnapshot != nil {
		s.state.TimerSeconds = *s.state.PausedTimerSnapshot
	}
	s.state.PausedTimerSnapshot = nil
	s.persistLocked(ctx)
	s.logTransition(ctx, "interview continued")
	s.resumeLocked(ctx)
	return s.snapshotLocked(), nil
}

// Reset returns the session to Uploading. Archived records are kept.
func (s *Session) Reset(ctx domain.Context) (Snapshot, error) {
	ctx = s.intentContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	s.resetLocked(ctx)
	s.logTransition(ctx, "session reset")
	return s.snapshotLocked(), nil
}

func (s *Session) resetLocked(ctx domain.Context) {
	s.epoch++
	s.issuing = false
	s.loading = false
	s.resumePrompt = false
	s.stopTimerLocked()
	s.state = domain.InitialSessionState()
	s.persistLocked(ctx)
	s.setInProgressLocked(ctx, false)
}

// Close stops the countdown and discards any in-flight work. The persisted
// state is left as is so the session can be restored later.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.issuing = false
	s.loading = false
	s.stopTimerLocked()
}

func (s *Session) armTimerLocked() {
	s.stopTimerLocked()
	if s.closed || s.resumePrompt || s.state.Paused || s.state.ActiveQuestion == nil || s.state.TimerSeconds <= 0 {
		return
	}
	gen := s.timerGen
	s.timer = s.deps.Scheduler.AfterFunc(time.Second, func() { s.tick(gen) })
}

// stopTimerLocked cancels the pending tick; a tick already running sees a
// newer generation and does nothing.
func (s *Session) stopTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.closed || s.resumePrompt || s.loading || s.state.Paused || s.state.ActiveQuestion == nil {
		return
	}
	s.timer = nil
	if s.state.TimerSeconds > 0 {
		s.state.TimerSeconds--
	}
	if s.state.TimerSeconds > 0 {
		s.persistLocked(s.bg)
		s.armTimerLocked()
		return
	}
	s.expireLocked(s.bg)
}

// expireLocked submits the buffered draft, or the time-expired placeholder.
func (s *Session) expireLocked(ctx domain.Context) {
	answer := strings.TrimSpace(s.state.AnswerDraft)
	if answer == "" {
		answer = domain.TimeExpiredAnswer
	}
	s.submitLocked(ctx, answer, TriggerTimeout)
}
