// Package ai implements the evaluation gateway: prompts, response cleaning,
// evaluation parsing and the local fallbacks served when a provider fails.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reQuestionPrefix = regexp.MustCompile(`(?i)^Question\s*\d*:?\s*`)
	rePreamble       = regexp.MustCompile(`(?i)^Here(?:'s| is)[^:]*:\s*`)
	reBullet         = regexp.MustCompile(`^[•\-*]\s*`)
	reNumbering      = regexp.MustCompile(`\d+\.\s+`)
	reNumbered       = regexp.MustCompile(`\d+\.`)
	reWhitespace     = regexp.MustCompile(`\s+`)
	reContinuation   = regexp.MustCompile(`(?i)^(?:Also|Additionally|Furthermore)\s*,?\s*`)
	reTrailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
	reSentenceEnd    = regexp.MustCompile(`[.!?]\s+`)
	reWord           = regexp.MustCompile(`(?i)\b(another|also)\b`)
)

var refusalIndicators = []string{
	"i'm sorry", "i cannot", "i can't", "i'm unable", "i apologize", "as an ai",
}

// ResponseCleaner handles cleaning and sanitizing LLM responses.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// removeMarkdownBlocks strips ``` fences around a reply.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ExtractJSONObject returns the first balanced {...} block of the reply.
// Braces inside JSON strings are ignored. Trailing commas are repaired.
func (rc *ResponseCleaner) ExtractJSONObject(response string) (string, bool) {
	response = rc.removeMarkdownBlocks(response)
	start := strings.Index(response, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				obj := response[start : i+1]
				if !rc.IsValidJSON(obj) {
					obj = reTrailingComma.ReplaceAllString(obj, "$1")
				}
				return obj, true
			}
		}
	}
	return "", false
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	return json.Valid([]byte(response))
}

// CleanQuestion strips labels, preambles, bullets, numbering and line breaks
// from generated question text.
func (rc *ResponseCleaner) CleanQuestion(text string) string {
	text = rc.removeMarkdownBlocks(text)
	text = strings.Trim(text, `"`)
	text = reQuestionPrefix.ReplaceAllString(text, "")
	text = rePreamble.ReplaceAllString(text, "")
	text = reBullet.ReplaceAllString(text, "")
	text = reNumbering.ReplaceAllString(text, "")
	text = reWhitespace.ReplaceAllString(text, " ")
	text = reContinuation.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ContainsMultipleQuestions reports whether the text holds more than one question.
func (rc *ResponseCleaner) ContainsMultipleQuestions(text string) bool {
	return strings.Count(text, "?") > 1 ||
		len(reNumbered.FindAllString(text, -1)) > 1 ||
		reWord.MatchString(text)
}

// ExtractFirstQuestion returns the first sentence ending in '?', or the first sentence.
func (rc *ResponseCleaner) ExtractFirstQuestion(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	for _, s := range sentences {
		if strings.HasSuffix(strings.TrimSpace(s), "?") {
			return strings.TrimSpace(s)
		}
	}
	return strings.TrimSpace(sentences[0])
}

// LooksLikeRefusal reports whether the model declined instead of answering.
func (rc *ResponseCleaner) LooksLikeRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, ind := range refusalIndicators {
		if strings.HasPrefix(lower, ind) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range reSentenceEnd.FindAllStringIndex(text, -1) {
		// keep the punctuation, drop the whitespace
		out = append(out, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, text[last:])
	}
	return out
}
