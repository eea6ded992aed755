package ai

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

var reScoreText = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)/10|score[\s:]*(\d+)`)

// Defaults applied to fields the model left out.
const (
	defaultScore        = 5
	defaultFeedback     = "Feedback not available"
	defaultImprovements = "Focus on providing more detailed explanations"
	defaultStrengths    = "Shows willingness to engage with technical questions"
)

// rawEvaluation tolerates numbers encoded as strings or floats.
type rawEvaluation struct {
	Score        any            `json:"score"`
	Feedback     string         `json:"feedback"`
	Improvements string         `json:"improvements"`
	Strengths    string         `json:"strengths"`
	Breakdown    map[string]any `json:"breakdown"`
}

func clampScore(v int) int {
	return max(0, min(10, v))
}

// scoreFromFloat truncates f after clamping it to the score range in float
// space, so out-of-range magnitudes never reach the int conversion.
func scoreFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Max(0, math.Min(10, f))), true
}

// toInt converts a JSON number or numeric string to a score; fractional
// values are truncated.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return scoreFromFloat(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "/10")), 64)
		if err != nil {
			return 0, false
		}
		return scoreFromFloat(f)
	default:
		return 0, false
	}
}

// validateEvaluation clamps the score and fills missing fields with defaults.
func validateEvaluation(raw rawEvaluation) domain.Evaluation {
	score, ok := toInt(raw.Score)
	if !ok {
		score = defaultScore
	}
	ev := domain.Evaluation{
		Score:        clampScore(score),
		Feedback:     strings.TrimSpace(raw.Feedback),
		Improvements: strings.TrimSpace(raw.Improvements),
		Strengths:    strings.TrimSpace(raw.Strengths),
	}
	if ev.Feedback == "" {
		ev.Feedback = defaultFeedback
	}
	if ev.Improvements == "" {
		ev.Improvements = defaultImprovements
	}
	if ev.Strengths == "" {
		ev.Strengths = defaultStrengths
	}
	if len(raw.Breakdown) == 0 {
		ev.Breakdown = domain.Breakdown{TechnicalAccuracy: 5, Clarity: 5, Examples: 5, Completeness: 5}
		return ev
	}
	get := func(key string) int {
		v, _ := toInt(raw.Breakdown[key])
		return clampScore(v)
	}
	ev.Breakdown = domain.Breakdown{
		TechnicalAccuracy: get("technical_accuracy"),
		Clarity:           get("clarity"),
		Examples:          get("examples"),
		Completeness:      get("completeness"),
	}
	return ev
}

// derivedBreakdown spreads one score over the criteria, floored at floor.
func derivedBreakdown(score, floor int) domain.Breakdown {
	return domain.Breakdown{
		TechnicalAccuracy: score,
		Clarity:           max(floor, score-1),
		Examples:          max(floor, score-2),
		Completeness:      max(floor, score-1),
	}
}

// parseEvaluationText recovers a score from prose when no JSON object was returned.
func parseEvaluationText(response, answer string) domain.Evaluation {
	score := defaultScore
	if m := reScoreText.FindStringSubmatch(response); m != nil {
		s := m[1]
		if s == "" {
			s = m[2]
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if v, ok := scoreFromFloat(f); ok {
				score = v
			}
		}
	}

	words := len(strings.Fields(answer))
	if words < 10 {
		score = min(score, 3)
	}
	score = clampScore(score)

	ev := domain.Evaluation{
		Score:        score,
		Feedback:     "Evaluation completed based on your response.",
		Improvements: "Consider adding more technical depth to your answers.",
		Strengths:    "Attempted to engage with the question.",
		Breakdown:    derivedBreakdown(score, 0),
	}
	if words < 20 {
		ev.Improvements = "Please provide more detailed explanations with specific examples."
	}
	if words > 5 {
		ev.Strengths = "Provided a response to the question."
	}
	return ev
}

// ParseEvaluation turns a model reply into an Evaluation. It never fails:
// a JSON object is preferred, then score patterns in prose.
func (rc *ResponseCleaner) ParseEvaluation(response, answer string) domain.Evaluation {
	if obj, ok := rc.ExtractJSONObject(response); ok {
		var raw rawEvaluation
		if err := json.Unmarshal([]byte(obj), &raw); err == nil {
			return validateEvaluation(raw)
		}
	}
	return parseEvaluationText(response, answer)
}
