package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

func TestDefaultQuestionPool(t *testing.T) {
	t.Parallel()
	p := DefaultQuestionPool()
	for _, d := range domain.Difficulties {
		assert.Len(t, p.Questions(d), 5, string(d))
	}
	assert.Equal(t, "Explain React's reconciliation algorithm.", p.Pick(domain.DifficultyHard, func(int) int { return 0 }))
	assert.Equal(t, p.Questions(domain.DifficultyEasy), p.Questions("Unknown"))
}

func TestLoadQuestionPool(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("medium:\n  - \"What is a goroutine?\"\n  - \"  \"\n"), 0o600))

	p, err := LoadQuestionPool(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"What is a goroutine?"}, p.Questions(domain.DifficultyMedium))
	assert.Len(t, p.Questions(domain.DifficultyHard), 5)
}

func TestLoadQuestionPool_Errors(t *testing.T) {
	t.Parallel()
	_, err := LoadQuestionPool(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("easy: [unclosed"), 0o600))
	_, err = LoadQuestionPool(path)
	assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
}
