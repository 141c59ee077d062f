package payvault_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tabwave/payvault/internal/domain"
	httpapi "github.com/tabwave/payvault/internal/http"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/internal/store/drivers/sqlite"
	"github.com/tabwave/payvault/pkg/jwtx"
	"github.com/tabwave/payvault/pkg/urlguard"
)

/*
 * Common constants and helpers for the end-to-end tests. Each test gets a
 * fresh in-memory store and its own httptest server, so rate limit buckets
 * and sessions never leak between tests.
 */

const (
	testIssuer  = "payvault-e2e"
	testVersion = "e2e"

	adminEmail    = "admin@tabwave.dev"
	adminPassword = "admin-password"
	userEmail     = "user@tabwave.dev"
	userPassword  = "user-password"

	accessSecret = "e2e-access-signing-key-0123456789ab"
	stepUpSecret = "e2e-stepup-signing-key-0123456789ab"
)

var callbackAllowlist = []string{
	"api.example.com",
	"webhook.trusted.com",
	"callback.secure-merchant.com",
}

type env struct {
	server *httptest.Server
	admin  domain.User
	user   domain.User
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newEnv wires the full service stack against an in-memory database and
// serves it over a real HTTP listener. Two accounts are seeded: an admin
// and a regular user.
func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	access, err := jwtx.NewHS256([]byte(accessSecret), testIssuer)
	require.NoError(t, err)
	stepUp, err := jwtx.NewHS256([]byte(stepUpSecret), testIssuer)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	audit := &service.AuditService{Store: st, Logger: logger}
	auth, err := service.NewAuthService(service.AuthService{
		Store:    st,
		Sessions: st.Sessions(),
		Access:   access,
		StepUp:   stepUp,
		Rand:     rand.Reader,
		Audit:    audit,
	})
	require.NoError(t, err)

	users := &service.UserService{Store: st, Audit: audit}

	router := httpapi.NewRouter(access, testVersion, st, st.Sessions(), logger)
	router.AuthService = auth
	router.UserService = users
	router.BalanceService = &service.BalanceService{Store: st, Audit: audit}
	router.MerchantService = &service.MerchantService{
		Store:     st,
		Validator: urlguard.New(callbackAllowlist),
		Audit:     audit,
	}
	router.AuditService = audit
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	e := &env{server: server}

	e.admin, err = users.Create(t.Context(), adminEmail, adminPassword, domain.RoleAdmin, "")
	require.NoError(t, err)
	e.user, err = users.Create(t.Context(), userEmail, userPassword, domain.RoleUser, "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, e.admin.Role)
	require.Equal(t, domain.RoleUser, e.user.Role)

	return e
}

// doJSON issues a request with an optional bearer token and JSON body and
// returns the status code and raw response body.
func (e *env) doJSON(t *testing.T, method, path, token string, body any) (int, []byte) {
	return e.doJSONHeaders(t, method, path, token, nil, body)
}

func (e *env) doJSONHeaders(t *testing.T, method, path, token string, headers map[string]string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, e.server.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (e *env) login(t *testing.T, email, password string) tokenPair {
	t.Helper()

	status, raw := e.doJSON(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login should succeed: %s", raw)

	var pair tokenPair
	require.NoError(t, json.Unmarshal(raw, &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	return pair
}

// stepUpToken re-enters the password for the authenticated caller and
// returns the short-lived step-up token.
func (e *env) stepUpToken(t *testing.T, accessToken, password string) string {
	t.Helper()

	status, raw := e.doJSON(t, http.MethodPost, "/v1/auth/reauth", accessToken, map[string]string{
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "reauth should succeed: %s", raw)

	var resp struct {
		StepUpToken string `json:"step_up_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.StepUpToken)
	require.Positive(t, resp.ExpiresIn)
	return resp.StepUpToken
}

func decodeError(t *testing.T, raw []byte) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.Error)
	return body
}
