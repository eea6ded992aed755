package real

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
	"github.com/fairyhunter13/ai-interview-assistant/internal/domain"
)

func testConfig(url string) config.Config {
	return config.Config{
		AppEnv:         "test",
		GroqAPIKey:     "k",
		GroqBaseURL:    url,
		GroqModel:      "m",
		LLMTemperature: 0.7,
		LLMMaxTokens:   1024,
		LLMTimeout:     5 * time.Second,
	}
}

func TestChat_SendsContractAndReturnsContent(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"What is JSX?"}}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	out, err := c.Chat(t.Context(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "What is JSX?", out)
	assert.Equal(t, "groq", c.Provider())

	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 1024, got.MaxTokens)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestChat_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := New(testConfig(srv.URL)).Chat(t.Context(), "", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChat_4xxIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Chat(t.Context(), "", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=real.Chat")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChat_EmptyChoicesAndMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Chat(t.Context(), "", "u")
	require.Error(t, err)

	cfg := testConfig(srv.URL)
	cfg.GroqAPIKey = ""
	_, err = New(cfg).Chat(t.Context(), "", "u")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
