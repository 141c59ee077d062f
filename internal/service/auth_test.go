package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/pkg/cryptox"
	"github.com/tabwave/payvault/pkg/idx"
	"github.com/tabwave/payvault/pkg/jwtx"
)

func TestLoginIssuesTokenPair(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "203.0.113.1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.EqualValues(t, (15 * time.Minute).Seconds(), pair.ExpiresIn)

	claims, err := e.access.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "user@tabwave.dev", claims.Email)
	require.Equal(t, "user", claims.Role)
	require.Empty(t, claims.Purpose)

	// The refresh token is opaque: it must not verify as a signed token.
	_, err = e.access.Verify(pair.RefreshToken)
	require.Error(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)
	seedAdminAndUser(t, e)
	ctx := context.Background()

	// Unknown email and wrong password produce the identical error: the
	// response must not reveal which half failed.
	_, errUnknown := e.auth.Login(ctx, "ghost@tabwave.dev", "user-password", "")
	_, errWrongPw := e.auth.Login(ctx, "user@tabwave.dev", "not-the-password", "")

	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(errUnknown))
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(errWrongPw))
	require.Equal(t, errUnknown.Error(), errWrongPw.Error())
	require.Contains(t, errUnknown.Error(), "Invalid credentials")
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	refreshed, err := e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)

	claims, err := e.access.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	// Rotation is off by default: the same refresh token stays valid.
	require.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	_, err = e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	e := newEnv(t)
	seedAdminAndUser(t, e)

	_, err := e.auth.Refresh(context.Background(), "never-issued-token", "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = e.auth.Refresh(context.Background(), "", "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRefreshExpiredTokenIsReaped(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	// Plant a session whose lifetime has already passed.
	raw := "expired-refresh-token"
	now := time.Now().UTC()
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-8 * 24 * time.Hour),
	}))

	_, err := e.auth.Refresh(ctx, raw, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// The expired row was deleted on sight.
	_, err = e.store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(raw))
	require.Error(t, err)
}

func TestRefreshRotationWhenEnabled(t *testing.T) {
	e := newEnv(t)
	_, _ = seedAdminAndUser(t, e)
	ctx := context.Background()

	e.auth.RotateRefresh = true

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	refreshed, err := e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// The rotated one works.
	_, err = e.auth.Refresh(ctx, refreshed.RefreshToken, "")
	require.NoError(t, err)
}

func TestStepUpTokenLifecycle(t *testing.T) {
	e := newEnv(t)
	admin, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	_, _, err := e.auth.IssueStepUp(ctx, user.ID, "not-the-password", "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	token, expiresIn, err := e.auth.IssueStepUp(ctx, user.ID, "user-password", "")
	require.NoError(t, err)
	require.EqualValues(t, (5 * time.Minute).Seconds(), expiresIn)

	require.NoError(t, e.auth.VerifyStepUp(token, user.ID))

	// Bound to the user who stepped up: anyone else gets the same
	// unauthorized failure an invalid token gets.
	err = e.auth.VerifyStepUp(token, admin.ID)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	err = e.auth.VerifyStepUp("", user.ID)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestStepUpAndAccessKeysAreDisjoint(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	// An access token never passes step-up verification.
	err = e.auth.VerifyStepUp(pair.AccessToken, user.ID)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// A step-up token never passes access verification.
	stepUpToken, _, err := e.auth.IssueStepUp(ctx, user.ID, "user-password", "")
	require.NoError(t, err)
	_, err = e.access.Verify(stepUpToken)
	require.Error(t, err)
}

func TestStepUpTokenExpires(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)

	// Sign a step-up token that died a minute ago, under the real key.
	claims := jwtx.NewStepUpClaims(user.ID, testIssuer, time.Minute, time.Now().Add(-2*time.Minute))
	token, err := e.stepUp.Sign(claims)
	require.NoError(t, err)

	err = e.auth.VerifyStepUp(token, user.ID)
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newEnv(t)
	seedAdminAndUser(t, e)
	ctx := context.Background()

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	require.NoError(t, e.auth.Logout(ctx, pair.RefreshToken))

	_, err = e.auth.Refresh(ctx, pair.RefreshToken, "")
	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// Logging out again, or with a token that never existed, still succeeds.
	require.NoError(t, e.auth.Logout(ctx, pair.RefreshToken))
	require.NoError(t, e.auth.Logout(ctx, "never-issued"))
	require.NoError(t, e.auth.Logout(ctx, ""))
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	var pairs []string
	for range 3 {
		pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
		require.NoError(t, err)
		pairs = append(pairs, pair.RefreshToken)
	}

	n, err := e.auth.LogoutAll(ctx, user.ID, "")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	for _, raw := range pairs {
		_, err := e.auth.Refresh(ctx, raw, "")
		require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	}
}

func TestDeterministicRandSource(t *testing.T) {
	e := newEnv(t)
	seedAdminAndUser(t, e)
	ctx := context.Background()

	// Injected randomness makes token generation reproducible.
	e.auth.Rand = repeatReader('A')

	pair, err := e.auth.Login(ctx, "user@tabwave.dev", "user-password", "")
	require.NoError(t, err)

	expected, err := cryptox.GenerateToken(repeatReader('A'), cryptox.TokenSize256)
	require.NoError(t, err)
	require.Equal(t, expected, pair.RefreshToken)
}

type repeatByteReader byte

func repeatReader(b byte) repeatByteReader { return repeatByteReader(b) }

func (r repeatByteReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestHousekeepingSweepsExpiredSessions(t *testing.T) {
	e := newEnv(t)
	_, user := seedAdminAndUser(t, e)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: "dead-hash",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-8 * 24 * time.Hour),
	}))
	require.NoError(t, e.store.Sessions().CreateSession(ctx, domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: "live-hash",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}))

	hk := service.NewHousekeepingService(e.store.Sessions(), discardLogger(), 10*time.Millisecond)
	hk.Start()
	t.Cleanup(hk.Stop)

	requireEventually(t, func() bool {
		_, err := e.store.Sessions().GetSessionByTokenHash(ctx, "dead-hash")
		return err != nil
	}, "expired session should be swept")

	_, err := e.store.Sessions().GetSessionByTokenHash(ctx, "live-hash")
	require.NoError(t, err)
}
