package textextractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
	"github.com/fairyhunter13/ai-interview-assistant/pkg/textx"
)

const (
	rawTextLimit   = 1000
	nameScanLines  = 8
	maxNameLineLen = 100
	maxFallbackLen = 50
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	longDigits   = regexp.MustCompile(`\d{10,}`)
	// nameNoise rejects words carrying digits or punctuation.
	nameNoise = regexp.MustCompile(`[0-9@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// ParseProfile pulls best-effort contact fields out of résumé text. Fields it
// cannot find are left empty; RawText keeps the first 1000 characters.
func ParseProfile(text string) domain.CandidateProfile {
	return domain.CandidateProfile{
		Name:    strings.TrimSpace(guessName(text)),
		Email:   strings.TrimSpace(emailPattern.FindString(text)),
		Phone:   strings.TrimSpace(phonePattern.FindString(text)),
		RawText: textx.TruncateRunes(text, rawTextLimit),
	}
}

func guessName(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	for i, line := range lines {
		if i == nameScanLines {
			break
		}
		if strings.Contains(line, "@") || strings.Contains(line, "http") ||
			longDigits.MatchString(line) || utf8.RuneCountInString(line) > maxNameLineLen {
			continue
		}
		if looksLikeName(strings.Fields(line)) {
			return strings.Join(strings.Fields(line), " ")
		}
	}
	if len(lines) > 0 {
		first := lines[0]
		if utf8.RuneCountInString(first) < maxFallbackLen && !strings.Contains(first, "@") {
			return first
		}
	}
	return ""
}

func looksLikeName(words []string) bool {
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if utf8.RuneCountInString(w) < 2 || unicode.IsLower(r) || nameNoise.MatchString(w) {
			return false
		}
	}
	return true
}
