package service_test

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/internal/store/drivers/sqlite"
	"github.com/tabwave/payvault/pkg/jwtx"
	"github.com/tabwave/payvault/pkg/urlguard"
)

const testIssuer = "payvault-test"

var allowedCallbackHosts = []string{
	"api.example.com",
	"webhook.trusted.com",
	"callback.secure-merchant.com",
}

type env struct {
	store    *sqlite.Store
	auth     *service.AuthService
	users    *service.UserService
	balance  *service.BalanceService
	merchant *service.MerchantService
	audit    *service.AuditService
	access   *jwtx.HS256
	stepUp   *jwtx.HS256
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	access, err := jwtx.NewHS256([]byte("test-access-signing-key-0123456789ab"), testIssuer)
	require.NoError(t, err)
	stepUp, err := jwtx.NewHS256([]byte("test-stepup-signing-key-0123456789ab"), testIssuer)
	require.NoError(t, err)

	audit := &service.AuditService{Store: st, Logger: discardLogger()}

	auth, err := service.NewAuthService(service.AuthService{
		Store:    st,
		Sessions: st.Sessions(),
		Access:   access,
		StepUp:   stepUp,
		Rand:     rand.Reader,
		Audit:    audit,
	})
	require.NoError(t, err)

	return &env{
		store:    st,
		auth:     auth,
		users:    &service.UserService{Store: st, Audit: audit},
		balance:  &service.BalanceService{Store: st, Audit: audit},
		merchant: &service.MerchantService{Store: st, Validator: urlguard.New(allowedCallbackHosts), Audit: audit},
		audit:    audit,
		access:   access,
		stepUp:   stepUp,
	}
}

// seedUser creates an account directly, bypassing the first-user-is-admin
// promotion, so tests control roles exactly.
func (e *env) seedUser(t *testing.T, email, password string, role domain.Role) domain.User {
	t.Helper()

	u, err := e.users.Create(context.Background(), email, password, role, "203.0.113.1")
	require.NoError(t, err)
	return u
}

func seedAdminAndUser(t *testing.T, e *env) (admin, user domain.User) {
	t.Helper()

	admin = e.seedUser(t, "admin@tabwave.dev", "admin-password", domain.RoleAdmin)
	user = e.seedUser(t, "user@tabwave.dev", "user-password", domain.RoleUser)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.Equal(t, domain.RoleUser, user.Role)
	return admin, user
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireEventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}
