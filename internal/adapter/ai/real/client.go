// Package real implements an OpenAI-compatible chat-completions client (Groq by default).
package real

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const providerName = "groq"

// Client implements domain.AIClient against a chat-completions endpoint.
type Client struct {
	cfg     config.Config
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// New constructs a client with an instrumented transport.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.GroqBaseURL, "/"),
		apiKey:  cfg.GroqAPIKey,
		model:   cfg.GroqModel,
		hc: &http.Client{
			Timeout:   cfg.LLMTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Provider implements domain.AIClient.
func (c *Client) Provider() string { return providerName }

// getBackoffConfig returns a configured ExponentialBackOff based on the current environment.
func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}

// Chat posts one system+user exchange and returns choices[0].message.content.
// 429 and 5xx are retried with exponential backoff; other 4xx fail immediately.
func (c *Client) Chat(ctx domain.Context, systemPrompt, userPrompt string) (string, error) {
	lg := observability.LoggerFromContext(ctx)
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: GROQ_API_KEY missing", domain.ErrInvalidArgument)
	}

	msgs := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})
	b, err := json.Marshal(chatRequest{
		Messages:    msgs,
		Model:       c.model,
		Temperature: c.cfg.LLMTemperature,
		MaxTokens:   c.cfg.LLMMaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("op=real.Chat: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out chatResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.RecordAIRequest(providerName, "chat", time.Since(start))
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lg.Warn("ai provider rate limited", slog.String("provider", providerName), slog.String("op", "chat"), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: 429", domain.ErrUpstreamRateLimit)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			lg.Warn("ai provider 4xx", slog.String("provider", providerName), slog.String("op", "chat"), slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("body", snippet(body)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			lg.Error("ai provider non-2xx", slog.String("provider", providerName), slog.String("op", "chat"), slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("body", snippet(body)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.getBackoffConfig(), ctx)); err != nil {
		return "", fmt.Errorf("op=real.Chat: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("op=real.Chat: %w", errors.New("empty choices"))
	}
	lg.Debug("ai provider call ok", slog.String("provider", providerName), slog.String("model", out.Model))
	return out.Choices[0].Message.Content, nil
}
