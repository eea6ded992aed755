// Package textextractor turns uploaded résumés into candidate profiles.
//
// Plain text is read directly, DOCX through nguyenthenguyen/docx, PDF through
// unipdf when a license key is configured; anything else, and every local
// failure, goes to Apache Tika when a Tika URL is configured.
package textextractor

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
	"github.com/fairyhunter13/ai-interview-assistant/pkg/textx"
)

// Accepted upload types.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// RemoteExtractor converts a document to text out of process.
type RemoteExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// Extractor implements domain.ResumeExtractor.
type Extractor struct {
	remote     RemoteExtractor
	pdfEnabled bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRemote routes unsupported formats and local failures to r.
func WithRemote(r RemoteExtractor) Option { return func(e *Extractor) { e.remote = r } }

// WithPDFLicense enables local PDF parsing with a metered unipdf key. An
// empty or rejected key leaves PDFs to the remote extractor.
func WithPDFLicense(key string) Option {
	return func(e *Extractor) {
		if key == "" {
			return
		}
		if err := setPDFLicense(key); err != nil {
			slog.Warn("unipdf license rejected; pdf goes to tika", slog.Any("error", err))
			return
		}
		e.pdfEnabled = true
	}
}

// New builds an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract never fails: a document nothing can read yields an empty profile.
func (e *Extractor) Extract(ctx domain.Context, data []byte, mimeType string) domain.CandidateProfile {
	ctx, span := observability.Tracer().Start(ctx, "textextractor.Extract")
	defer span.End()
	return ParseProfile(e.text(ctx, data, baseMime(mimeType)))
}

func (e *Extractor) text(ctx context.Context, data []byte, mimeType string) string {
	lg := observability.LoggerFromContext(ctx)
	local := func(backend string, f func([]byte) (string, error)) (string, bool) {
		s, err := f(data)
		observability.RecordExtraction(backend, err == nil)
		if err != nil {
			lg.Warn("local resume extraction failed", slog.String("backend", backend), slog.Any("error", err))
			return "", false
		}
		return textx.NormalizeLines(s), true
	}
	switch mimeType {
	case MimeText:
		if utf8.Valid(data) {
			observability.RecordExtraction("text", true)
			return textx.NormalizeLines(string(data))
		}
	case MimeDOCX:
		if s, ok := local("docx", docxText); ok {
			return s
		}
	case MimePDF:
		if e.pdfEnabled {
			if s, ok := local("pdf", pdfText); ok {
				return s
			}
		}
	}
	if e.remote == nil {
		lg.Warn("no extractor for resume", slog.String("mime", mimeType))
		return ""
	}
	s, err := e.remote.Extract(ctx, data, mimeType)
	observability.RecordExtraction("tika", err == nil)
	if err != nil {
		lg.Warn("remote resume extraction failed", slog.String("mime", mimeType), slog.Any("error", err))
		return ""
	}
	return s
}

func baseMime(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
