package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-assistant/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Answer submission waits for the evaluator, so the request timeout
	// follows the write timeout.
	timeout := cfg.HTTPWriteTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.TimeoutMiddleware(timeout))
		v1.Group(func(sr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				sr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			sr.Post("/sessions", srv.CreateSessionHandler())
			sr.Get("/sessions/{id}", srv.GetSessionHandler())
			sr.Post("/sessions/{id}/resume-decision", srv.ResumeDecisionHandler())
			sr.Post("/sessions/{id}/upload", srv.UploadHandler())
			sr.Post("/sessions/{id}/profile", srv.ProfileHandler())
			sr.Post("/sessions/{id}/answer", srv.AnswerHandler())
			sr.Post("/sessions/{id}/pause", srv.PauseHandler())
			sr.Post("/sessions/{id}/continue", srv.ContinueHandler())
			sr.Post("/sessions/{id}/reset", srv.ResetHandler())
		})
		// Drafts follow keystrokes and stay outside the per-IP limit.
		v1.Put("/sessions/{id}/draft", srv.DraftHandler())
		v1.Group(func(ir chi.Router) {
			if cfg.InterviewerAuthEnabled() {
				ir.Use(httpserver.BasicAuth(cfg.InterviewerUsername, cfg.InterviewerPasswordHash))
			}
			ir.Get("/candidates", srv.ListCandidatesHandler())
			ir.Get("/candidates/{id}", srv.GetCandidateHandler())
			ir.Delete("/candidates/{id}", srv.DeleteCandidateHandler())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
