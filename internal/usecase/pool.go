package usecase

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

// QuestionPool is the canned question set used when the gateway keeps
// returning near-duplicates of recent questions.
type QuestionPool struct {
	byDifficulty map[domain.Difficulty][]string
}

// questionPoolFile is the YAML layout accepted by LoadQuestionPool.
type questionPoolFile struct {
	Easy   []string `yaml:"easy"`
	Medium []string `yaml:"medium"`
	Hard   []string `yaml:"hard"`
}

// DefaultQuestionPool returns the bundled questions.
func DefaultQuestionPool() *QuestionPool {
	return &QuestionPool{byDifficulty: map[domain.Difficulty][]string{
		domain.DifficultyEasy: {
			"What is JSX in React and how is it different from HTML?",
			"Explain the concept of components in React.",
			"What are props in React and how do you use them?",
			"How do you handle events in React?",
			"What is the difference between functional and class components?",
		},
		domain.DifficultyMedium: {
			"How does React's virtual DOM improve performance?",
			"What are React hooks and why were they introduced?",
			"Explain the useEffect hook and its dependencies.",
			"How do you manage state in a React application?",
			"What is the purpose of keys in React lists?",
		},
		domain.DifficultyHard: {
			"Explain React's reconciliation algorithm.",
			"How would you optimize a React application's performance?",
			"What are React error boundaries and how do they work?",
			"Explain the Context API and when to use it.",
			"How does React handle server-side rendering?",
		},
	}}
}

// LoadQuestionPool reads a YAML pool file. Difficulties left empty in the
// file keep the bundled questions.
func LoadQuestionPool(path string) (*QuestionPool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=pool.Load: %w", err)
	}
	var f questionPoolFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("op=pool.Load: %w: %v", domain.ErrSchemaInvalid, err)
	}
	p := DefaultQuestionPool()
	for d, list := range map[domain.Difficulty][]string{
		domain.DifficultyEasy:   f.Easy,
		domain.DifficultyMedium: f.Medium,
		domain.DifficultyHard:   f.Hard,
	} {
		clean := make([]string, 0, len(list))
		for _, q := range list {
			if q = strings.TrimSpace(q); q != "" {
				clean = append(clean, q)
			}
		}
		if len(clean) > 0 {
			p.byDifficulty[d] = clean
		}
	}
	return p, nil
}

// Questions returns the questions for d, falling back to Easy.
func (p *QuestionPool) Questions(d domain.Difficulty) []string {
	if list := p.byDifficulty[d]; len(list) > 0 {
		return list
	}
	return p.byDifficulty[domain.DifficultyEasy]
}

// Pick returns one question for d using intn to choose the index.
func (p *QuestionPool) Pick(d domain.Difficulty, intn func(int) int) string {
	list := p.Questions(d)
	return list[intn(len(list))]
}
