// Package tokencount counts prompt tokens with tiktoken-go so the summary
// prompt can carry as much of the interview transcript as fits a budget.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
	// estimateOnly skips tiktoken and uses the ~4 chars per token estimate.
	estimateOnly bool
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// NewEstimatingCounter returns a counter that never loads a BPE file.
func NewEstimatingCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken), estimateOnly: true}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

// getEncodingForModel returns the tiktoken encoding for a model, cached per normalized name.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[name]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// cl100k_base is the closest public encoding for Llama and Gemini families
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// normalizeModelName converts provider model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if strings.Contains(model, "gpt-3.5") {
		return "gpt-3.5-turbo"
	}
	return "gpt-4"
}

func estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountTokens counts tokens in text. When no encoding can be loaded it
// returns the character estimate instead of failing.
func (c *Counter) CountTokens(text, model string) int {
	if c.estimateOnly {
		return estimate(text)
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		slog.Warn("token encoding unavailable, using estimate", slog.String("model", model), slog.Any("error", err))
		c.mu.Lock()
		c.estimateOnly = true
		c.mu.Unlock()
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// TrimToBudget keeps the longest suffix of lines whose total token count fits
// budget and reports how many leading lines were dropped. A budget <= 0 keeps everything.
func (c *Counter) TrimToBudget(lines []string, budget int, model string) (kept []string, dropped int) {
	if budget <= 0 {
		return lines, 0
	}
	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		n := c.CountTokens(lines[i], model) + 1
		if total+n > budget {
			break
		}
		total += n
		start = i
	}
	return lines[start:], start
}
