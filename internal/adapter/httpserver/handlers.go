package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/textextractor"
	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
	"github.com/fairyhunter13/ai-interview-assistant/internal/usecase"
)

// ReadinessCheck probes one dependency for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Sessions *usecase.SessionRegistry
	Archive  *usecase.ArchiveService
	Checks   []ReadinessCheck
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, sessions *usecase.SessionRegistry, archive *usecase.ArchiveService, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Sessions: sessions, Archive: archive, Checks: checks}
}

type submitResponse struct {
	usecase.Snapshot
	Accepted bool `json:"accepted"`
}

type candidateList struct {
	Candidates []domain.CandidateRecord `json:"candidates"`
	Total      int                      `json:"total"`
}

// session resolves {id} or writes the error.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*usecase.Session, bool) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, nil)
		return nil, false
	}
	return sess, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, snap usecase.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// CreateSessionHandler starts a new interview session.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Sessions.Create(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Location", "/v1/sessions/"+sess.ID())
		writeJSON(w, http.StatusCreated, sess.Snapshot())
	}
}

// GetSessionHandler returns the session snapshot. The first request after a
// restart restores the session and runs the resume check.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

// ResumeDecisionHandler resolves a pending resume prompt.
func (s *Server) ResumeDecisionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resumeDecisionRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, err := sess.ResolveResume(r.Context(), *req.Resume)
		s.respond(w, r, snap, err)
	}
}

// allowedExt enforces an allowlist for uploads: .txt, .pdf, .docx
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

// uploadMime reduces a sniffed type to one the extractor accepts, or "".
func uploadMime(detected *mimetype.MIME) string {
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case m.Is(textextractor.MimePDF):
			return textextractor.MimePDF
		case m.Is(textextractor.MimeDOCX):
			return textextractor.MimeDOCX
		case m.Is(textextractor.MimeText):
			return textextractor.MimeText
		}
	}
	return ""
}

// UploadHandler accepts a résumé (multipart field "resume") and runs extraction.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64*1024)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		defer func() { _ = file.Close() }()
		if header.Size > maxBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
			}})
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		detected := mimetype.Detect(data)
		mime := uploadMime(detected)
		if !allowedExt(header.Filename) || mime == "" {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code:    "INVALID_ARGUMENT",
				Message: "unsupported media type: upload a PDF, DOCX or TXT resume",
				Details: map[string]any{"mime": detected.String(), "filename": header.Filename},
			}})
			return
		}
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, err := sess.Upload(r.Context(), data, mime)
		s.respond(w, r, snap, err)
	}
}

// ProfileHandler submits manually entered candidate fields.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, err := sess.SubmitProfile(r.Context(),
			SanitizeString(req.Name, 200), SanitizeString(req.Email, 320), SanitizeString(req.Phone, 40))
		s.respond(w, r, snap, err)
	}
}

// DraftHandler buffers the answer text submitted when the timer expires.
func (s *Server) DraftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, err := sess.SetDraft(r.Context(), SanitizeString(req.Text, maxAnswerRunes))
		s.respond(w, r, snap, err)
	}
}

// AnswerHandler submits the answer to the active question and waits for its
// evaluation. A submission racing another one is reported with accepted=false.
func (s *Server) AnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, accepted, err := sess.Submit(r.Context(), SanitizeString(req.Text, maxAnswerRunes))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{Snapshot: snap, Accepted: accepted})
	}
}

// intentHandler serves the body-less session intents.
func (s *Server) intentHandler(intent func(*usecase.Session, context.Context) (usecase.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		snap, err := intent(sess, r.Context())
		s.respond(w, r, snap, err)
	}
}

// PauseHandler freezes the timer.
func (s *Server) PauseHandler() http.HandlerFunc {
	return s.intentHandler((*usecase.Session).Pause)
}

// ContinueHandler restores the frozen timer.
func (s *Server) ContinueHandler() http.HandlerFunc {
	return s.intentHandler((*usecase.Session).Continue)
}

// ResetHandler returns the session to the upload step.
func (s *Server) ResetHandler() http.HandlerFunc {
	return s.intentHandler((*usecase.Session).Reset)
}

// ListCandidatesHandler returns the searched and sorted archive projection.
func (s *Server) ListCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		term := SanitizeString(q.Get("search"), maxSearchRunes)
		recs, err := s.Archive.View(r.Context(), term, q.Get("sort"))
		if err != nil {
			writeError(w, r, err, map[string]string{"sort": q.Get("sort")})
			return
		}
		writeJSON(w, http.StatusOK, candidateList{Candidates: recs, Total: len(recs)})
	}
}

// GetCandidateHandler returns one archived record with its transcript.
func (s *Server) GetCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.Archive.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// DeleteCandidateHandler removes one archived record.
func (s *Server) DeleteCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Archive.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReadyzHandler probes every configured dependency.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		st := http.StatusOK
		for _, c := range s.Checks {
			if err := c.Check(ctx); err != nil {
				checks = append(checks, check{Name: c.Name, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: c.Name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
