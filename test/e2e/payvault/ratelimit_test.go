package payvault_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoginRateLimit hammers the login endpoint from one IP until the
// strict limit trips, then checks the 429 contract.
func TestLoginRateLimit(t *testing.T) {
	e := newEnv(t)

	body, err := json.Marshal(map[string]string{
		"email":    userEmail,
		"password": "wrong-password",
	})
	require.NoError(t, err)

	send := func() *http.Response {
		t.Helper()
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
			e.server.URL+"/v1/auth/login", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.server.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	// The strict profile allows 5 requests per minute from one IP. The
	// first five fail on credentials, not on the limiter.
	for i := 0; i < 5; i++ {
		resp := send()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "request %d should reach the handler", i+1)
	}

	resp := send()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))

	var errResp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	require.Equal(t, "rate_limit_exceeded", errResp.Error)

	// Another client IP is unaffected. X-Forwarded-For stands in for a
	// different origin.
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
		e.server.URL+"/v1/auth/login", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")

	other, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer other.Body.Close()
	require.Equal(t, http.StatusUnauthorized, other.StatusCode)
}
