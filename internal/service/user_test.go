package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/service"
)

func TestCreateUserValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		role     domain.Role
	}{
		{"bad email", "not-an-email", "long-enough", domain.RoleUser},
		{"short password", "ok@tabwave.dev", "abc", domain.RoleUser},
		{"bad role", "ok@tabwave.dev", "long-enough", domain.Role("superadmin")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.users.Create(ctx, tc.email, tc.password, tc.role, "")
			require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestFirstUserBecomesAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.users.Create(ctx, "first@tabwave.dev", "password1", domain.RoleUser, "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, first.Role)

	second, err := e.users.Create(ctx, "second@tabwave.dev", "password2", domain.RoleUser, "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, second.Role)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	seedAdminAndUser(t, e)

	_, err := e.users.Create(context.Background(), "user@tabwave.dev", "password1", domain.RoleUser, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.users.Create(ctx, "  MiXeD@Tabwave.Dev ", "password1", domain.RoleAdmin, "")
	require.NoError(t, err)
	require.Equal(t, "mixed@tabwave.dev", u.Email)
}

func TestGetUserNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.GetByID(context.Background(), 999)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	require.NoError(t, e.users.ChangePassword(ctx, e.store.Sessions(), user.ID, "brand-new-password", ""))

	// Old refresh token is dead; the new password logs in.
	_, err = e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = e.auth.Login(ctx, "user@tabwave.dev", "brand-new-password", "")
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUpdateUserFields(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	email := "  Renamed@Tabwave.Dev "
	role := domain.RoleAdmin
	updated, err := e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{
		Email: &email,
		Role:  &role,
	}, "")
	require.NoError(t, err)
	require.Equal(t, "renamed@tabwave.dev", updated.Email)
	require.Equal(t, domain.RoleAdmin, updated.Role)

	// An empty update is a no-op readback.
	same, err := e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{}, "")
	require.NoError(t, err)
	require.Equal(t, updated.Email, same.Email)
}

func TestUpdateUserPasswordRevokesSessions(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	password := "rotated-password"
	_, err = e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{Password: &password}, "")
	require.NoError(t, err)

	_, err = e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = e.auth.Login(ctx, "user@tabwave.dev", "rotated-password", "")
	require.NoError(t, err)
}

func TestUpdateUserValidation(t *testing.T) {
	e := newEnv(t)
	admin, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	badEmail := "not-an-email"
	_, err := e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{Email: &badEmail}, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	taken := admin.Email
	_, err = e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{Email: &taken}, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	badRole := domain.Role("superadmin")
	_, err = e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{Role: &badRole}, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	shortPassword := "abc"
	_, err = e.users.Update(ctx, e.store.Sessions(), user.ID, service.UserUpdate{Password: &shortPassword}, "")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	email := "ghost@tabwave.dev"
	_, err = e.users.Update(ctx, e.store.Sessions(), 999, service.UserUpdate{Email: &email}, "")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	require.NoError(t, e.users.Delete(ctx, user.ID, ""))

	_, err := e.users.GetByID(ctx, user.ID)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = e.users.Delete(ctx, user.ID, "")
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
