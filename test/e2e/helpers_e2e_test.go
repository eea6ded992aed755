//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

var baseURL = strings.TrimRight(getenv("E2E_BASE_URL", "http://localhost:8080/v1"), "/")

func newClient() *http.Client { return &http.Client{Timeout: 120 * time.Second} }

// requireApp skips the test when the server is not reachable.
func requireApp(t *testing.T, c *http.Client) {
	t.Helper()
	resp, err := c.Get(strings.TrimSuffix(baseURL, "/v1") + "/healthz")
	if err != nil {
		t.Skip("app not available; skipping E2E")
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("app not healthy (%d); skipping E2E", resp.StatusCode)
	}
}

// doJSON sends body as JSON and decodes the response into a map.
func doJSON(t *testing.T, c *http.Client, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u := os.Getenv("E2E_INTERVIEWER_USER"); u != "" && strings.HasPrefix(path, "/candidates") {
		req.SetBasicAuth(u, os.Getenv("E2E_INTERVIEWER_PASSWORD"))
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}
