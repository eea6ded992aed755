// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	// LogLevel overrides the env-derived level (debug, info, warn, error).
	LogLevel string `env:"LOG_LEVEL"`
	// LLMProvider selects the gateway backend: groq (OpenAI-compatible) or gemini.
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"groq"`
	GroqAPIKey     string        `env:"GROQ_API_KEY"`
	GroqBaseURL    string        `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel      string        `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	GeminiModel    string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	// LLMRateLimitPerMin caps provider calls shared by all sessions; 0 disables it. Needs REDIS_URL.
	LLMRateLimitPerMin int `env:"LLM_RATE_LIMIT_PER_MIN" envDefault:"30"`
	// SummaryTranscriptTokens bounds the transcript embedded in the summary prompt.
	SummaryTranscriptTokens int `env:"SUMMARY_TRANSCRIPT_TOKENS" envDefault:"1500"`
	// QuestionPoolFile optionally overrides the bundled canned questions (YAML).
	QuestionPoolFile string `env:"QUESTION_POOL_FILE"`
	// RedisURL selects the Redis session store; empty falls back to the in-memory store.
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	// DBURL enables the PostgreSQL archive mirror when set.
	DBURL   string `env:"DB_URL"`
	TikaURL string `env:"TIKA_URL"`
	// UnidocLicenseKey enables local PDF extraction; without it PDFs go to Tika.
	UnidocLicenseKey        string        `env:"UNIDOC_LICENSE_API_KEY"`
	MaxUploadMB             int64         `env:"MAX_UPLOAD_MB" envDefault:"5"`
	InterviewerUsername     string        `env:"INTERVIEWER_USERNAME"`
	InterviewerPasswordHash string        `env:"INTERVIEWER_PASSWORD_HASH"`
	CORSAllowOrigins        string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin         int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout         time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout        time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
	HTTPIdleTimeout         time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	OTLPEndpoint            string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName         string        `env:"OTEL_SERVICE_NAME" envDefault:"ai-interview-assistant"`
	// AI Backoff Configuration
	AIBackoffMaxElapsedTime  time.Duration `env:"AI_BACKOFF_MAX_ELAPSED_TIME" envDefault:"20s"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"500ms"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"5s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"1.5"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// InterviewerAuthEnabled reports whether dashboard endpoints require Basic auth.
func (c Config) InterviewerAuthEnabled() bool {
	return c.InterviewerUsername != "" && c.InterviewerPasswordHash != ""
}

// Provider returns the normalized LLM provider name.
func (c Config) Provider() string {
	p := strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if p == "" {
		return "groq"
	}
	return p
}

// GetAIBackoffConfig returns backoff configuration appropriate for the current environment.
// In test environments, uses much shorter timeouts for faster test execution.
func (c Config) GetAIBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 10 * time.Millisecond, 100 * time.Millisecond, 2.0
	}
	return c.AIBackoffMaxElapsedTime, c.AIBackoffInitialInterval, c.AIBackoffMaxInterval, c.AIBackoffMultiplier
}
