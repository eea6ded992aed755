// Package gemini implements domain.AIClient on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/fairyhunter13/ai-interview-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

const providerName = "gemini"

// Client wraps the GenAI SDK client for single-turn prompts.
type Client struct {
	cfg    config.Config
	client *genai.Client
	model  string
}

// Option customises the underlying SDK client.
type Option func(*genai.ClientConfig)

// WithBaseURL points the SDK at another endpoint (tests, proxies).
func WithBaseURL(baseURL string) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL, APIVersion: "v1beta"}
	}
}

// WithHTTPClient replaces the instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cc *genai.ClientConfig) { cc.HTTPClient = hc }
}

// New creates a Gemini client for cfg.GeminiModel.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrInvalidArgument)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.LLMTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("op=gemini.New: %w", err)
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{cfg: cfg, client: client, model: model}, nil
}

// Provider implements domain.AIClient.
func (c *Client) Provider() string { return providerName }

func apiStatus(err error) int {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code
	}
	return 0
}

// Chat sends the prompts as one generateContent call with the system prompt as instruction.
func (c *Client) Chat(ctx domain.Context, systemPrompt, userPrompt string) (string, error) {
	lg := observability.LoggerFromContext(ctx)
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.cfg.LLMTemperature)),
		MaxOutputTokens: int32(c.cfg.LLMMaxTokens),
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var output string
	op := func() error {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), gc)
		observability.RecordAIRequest(providerName, "chat", time.Since(start))
		if err != nil {
			status := apiStatus(err)
			if status == http.StatusTooManyRequests || status >= 500 || status == 0 {
				lg.Warn("ai provider call failed", slog.String("provider", providerName), slog.Int("status", status), slog.Any("error", err))
				return err
			}
			return backoff.Permanent(err)
		}
		output = joinText(resp)
		if output == "" {
			return backoff.Permanent(errors.New("gemini api returned empty response"))
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime, expo.InitialInterval, expo.MaxInterval, expo.Multiplier = c.cfg.GetAIBackoffConfig()
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return "", fmt.Errorf("op=gemini.Chat: %w", err)
	}
	return output, nil
}

func joinText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return strings.TrimSpace(b.String())
}
