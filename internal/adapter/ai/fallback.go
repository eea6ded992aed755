package ai

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// mockQuestions are served when the provider is unavailable.
var mockQuestions = map[domain.Difficulty][]string{
	domain.DifficultyEasy: {
		"What is the virtual DOM in React and why is it beneficial?",
		"Explain the difference between let, const, and var in JavaScript.",
		"What is the purpose of package.json in a Node.js project?",
		"How do you create a component in React?",
		"What are props in React and how are they used?",
	},
	domain.DifficultyMedium: {
		"How would you optimize the performance of a React application?",
		"Explain the concept of middleware in Express.js with an example.",
		"What are React hooks and when would you use useEffect vs useState?",
		"How do you handle authentication in a React/Node.js application?",
		"What is the difference between synchronous and asynchronous code in JavaScript?",
	},
	domain.DifficultyHard: {
		"Explain how you would implement server-side rendering with React and Node.js.",
		"Describe strategies for state management in large-scale React applications.",
		"How would you design a microservices architecture for a full-stack application?",
		"Explain the concept of JWT authentication and implement a secure login flow.",
		"How do you handle error boundaries and error tracking in production React apps?",
	},
}

func (g *Gateway) intn(n int) int {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.IntN(n)
}

func (g *Gateway) float() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}

func (g *Gateway) mockQuestion(d domain.Difficulty) string {
	list, ok := mockQuestions[d]
	if !ok {
		list = mockQuestions[domain.DifficultyEasy]
	}
	return list[g.intn(len(list))]
}

// mockEvaluation scores by difficulty and answer length.
func (g *Gateway) mockEvaluation(answer string, d domain.Difficulty) domain.Evaluation {
	base := 7.0
	switch d {
	case domain.DifficultyMedium:
		base = 6
	case domain.DifficultyHard:
		base = 5
	}
	score := base + (g.float()*2 - 1)
	words := len(strings.Fields(answer))
	if words < 10 {
		score = math.Max(1, score-3)
	} else if words > 50 {
		score = math.Min(10, score+1)
	}
	final := clampScore(int(math.Round(score)))
	return domain.Evaluation{
		Score:        final,
		Feedback:     "This demonstrates reasonable understanding. Consider providing more specific examples and practical implementation details.",
		Improvements: "Include code snippets and discuss real-world applications of the concepts mentioned.",
		Strengths:    "Shows logical thinking and engagement with technical concepts.",
		Breakdown:    derivedBreakdown(final, 1),
	}
}

// mockSummary references whether any question was answered.
func mockSummary(in domain.SummaryInput) string {
	level, focus := "basic", "fundamentals"
	if in.AnsweredQuestions > 0 {
		level, focus = "promising", "advanced concepts"
	}
	return fmt.Sprintf("The candidate demonstrates %s understanding of full-stack development concepts. "+
		"With additional practice on React best practices and Node.js backend architecture, they show potential for growth in a developer role. "+
		"Recommended next steps include focused practice on %s.", level, focus)
}

// newRand seeds a PCG source from the runtime generator.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
