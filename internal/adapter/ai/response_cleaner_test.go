package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseCleaner_ExtractJSONObject(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"plain object", `{"score": 7}`, `{"score": 7}`, true},
		{"embedded in prose", `Here you go: {"score": 8, "feedback": "ok"} thanks`, `{"score": 8, "feedback": "ok"}`, true},
		{"markdown fence", "```json\n{\"score\": 6}\n```", `{"score": 6}`, true},
		{"nested braces", `x {"a": {"b": 1}} {"c": 2}`, `{"a": {"b": 1}}`, true},
		{"brace inside string", `{"feedback": "use {} carefully"}`, `{"feedback": "use {} carefully"}`, true},
		{"trailing comma repaired", `{"score": 5,}`, `{"score": 5}`, true},
		{"no object", `Score: 7/10`, "", false},
		{"unbalanced", `{"score": 7`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rc.ExtractJSONObject(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseCleaner_CleanQuestion(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	tests := []struct {
		input string
		want  string
	}{
		{"Question 1: What is JSX?", "What is JSX?"},
		{"Here is your question: What is a closure?", "What is a closure?"},
		{"- How do hooks work?", "How do hooks work?"},
		{"What is\nthe virtual   DOM?", "What is the virtual DOM?"},
		{`"What is Node.js?"`, "What is Node.js?"},
		{"Additionally, what is SSR?", "what is SSR?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rc.CleanQuestion(tt.input), tt.input)
	}
}

func TestResponseCleaner_MultipleQuestions(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	assert.False(t, rc.ContainsMultipleQuestions("What is JSX?"))
	assert.True(t, rc.ContainsMultipleQuestions("What is JSX? Why use it?"))
	assert.True(t, rc.ContainsMultipleQuestions("1. What is JSX 2. What are props"))
	assert.True(t, rc.ContainsMultipleQuestions("What is JSX and also what are props"))

	assert.Equal(t, "What is JSX?", rc.ExtractFirstQuestion("Think about React. What is JSX? Why use it?"))
	assert.Equal(t, "Describe hooks.", rc.ExtractFirstQuestion("Describe hooks. Then explain context."))
}

func TestResponseCleaner_LooksLikeRefusal(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()
	assert.True(t, rc.LooksLikeRefusal("I'm sorry, but I can't help with that."))
	assert.False(t, rc.LooksLikeRefusal("How can you avoid re-renders when I'm sorry is shown?"))
}
