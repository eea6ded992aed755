package ai

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const questionSystemPrompt = `You are an AI technical interviewer for Full Stack Developer positions specializing in React.js and Node.js.

GUIDELINES:
- Generate exactly ONE clear, concise, practical technical question
- Focus on real-world scenarios and problem-solving
- Questions should be appropriate for the difficulty level
- Return ONLY the question text without any additional commentary
- Avoid numbering, labels, or introductory phrases
- NEVER return multiple questions or variations

DIFFICULTY LEVELS:
- Easy: Basic concepts, definitions, simple implementations
- Medium: Practical applications, common patterns, debugging
- Hard: Architecture, optimization, advanced patterns, system design`

const evaluationSystemPrompt = `You are a strict technical interviewer. Evaluate answers objectively.

SCORING RULES:
- Very short or irrelevant answers (less than 10 words): Score 1-3/10
- Partial but incomplete answers: Score 4-6/10
- Good answers with minor issues: Score 7-8/10
- Excellent comprehensive answers: Score 9-10/10

Be strict but fair and consider the difficulty level when scoring.`

const summarySystemPrompt = `You are a senior technical interviewer providing honest candidate summaries.
Base your summary strictly on the actual interview performance, not on assumptions.
Be objective about strengths and weaknesses.`

func focusFor(d domain.Difficulty) string {
	switch d {
	case domain.DifficultyMedium:
		return "State management, API integration, common patterns"
	case domain.DifficultyHard:
		return "Performance optimization, architecture, advanced patterns"
	default:
		return "Basic concepts, syntax, simple components"
	}
}

func questionPrompt(d domain.Difficulty, contextHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly ONE %s level technical interview question for a Full Stack Developer.\n\n", d)
	b.WriteString("Focus Area: React.js and Node.js\n")
	fmt.Fprintf(&b, "Difficulty: %s\n", d)
	if hint := strings.TrimSpace(contextHint); hint != "" {
		fmt.Fprintf(&b, "Candidate Context: %s\n", hint)
	}
	fmt.Fprintf(&b, "\nExpected %s Level Focus:\n%s\n\n", d, focusFor(d))
	b.WriteString("Return ONLY the question text. Do NOT return multiple questions or variations.")
	return b.String()
}

func evaluationPrompt(question, answer string, d domain.Difficulty) string {
	return fmt.Sprintf(`Evaluate this %s level interview response:

QUESTION: %s
ANSWER: %s

Score based on:
1. Relevance to question (40%%)
2. Technical accuracy (30%%)
3. Depth of explanation (20%%)
4. Clarity and structure (10%%)

Provide JSON response:
{
  "score": number (0-10),
  "feedback": "honest technical feedback",
  "improvements": "specific suggestions",
  "strengths": "what was done well (if any)",
  "breakdown": {"technical_accuracy": 0-10, "clarity": 0-10, "examples": 0-10, "completeness": 0-10}
}`, d, question, answer)
}

// transcriptLines renders chat entries one per line for the summary prompt.
func transcriptLines(t domain.Transcript) []string {
	lines := make([]string, 0, len(t))
	for _, e := range t {
		switch v := e.(type) {
		case domain.QuestionEntry:
			lines = append(lines, fmt.Sprintf("Q (%s): %s", v.Difficulty, v.Text))
		case domain.AnswerEntry:
			lines = append(lines, "A: "+v.Text)
		case domain.EvaluationEntry:
			lines = append(lines, "E: "+v.ScoreSummary)
		}
	}
	return lines
}

func summaryPrompt(in domain.SummaryInput, transcript []string, dropped int) string {
	name := strings.TrimSpace(in.Candidate.Name)
	if name == "" {
		name = "Unknown"
	}
	total := in.TotalQuestions
	if total == 0 {
		total = domain.TotalQuestions
	}
	var b strings.Builder
	b.WriteString("Generate an honest professional summary for this interview performance:\n\n")
	fmt.Fprintf(&b, "CANDIDATE: %s\n", name)
	fmt.Fprintf(&b, "TOTAL QUESTIONS: %d\n", total)
	fmt.Fprintf(&b, "QUESTIONS ANSWERED: %d\n", in.AnsweredQuestions)
	fmt.Fprintf(&b, "AVERAGE SCORE: %.1f\n\n", in.AverageScore())
	b.WriteString("INTERVIEW TRANSCRIPT:\n")
	if dropped > 0 {
		fmt.Fprintf(&b, "(%d earlier lines omitted)\n", dropped)
	}
	b.WriteString(strings.Join(transcript, "\n"))
	b.WriteString(`

Focus on:
- Actual performance based on the Q/A above
- Specific strengths demonstrated in answers
- Areas needing improvement based on responses
- Honest assessment of technical knowledge

If candidate didn't answer many questions, mention this honestly.
Keep it professional, constructive, and based only on the evidence provided.`)
	return b.String()
}
