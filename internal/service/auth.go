package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tabwave/payvault/internal/apperr"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/cryptox"
	"github.com/tabwave/payvault/pkg/idx"
	"github.com/tabwave/payvault/pkg/jwtx"
	"github.com/tabwave/payvault/pkg/slogx"
)

// msgInvalidCredentials is the single message for every credential failure.
// It never distinguishes an unknown email from a wrong password.
const msgInvalidCredentials = "Invalid credentials"

// AuthService owns the three token classes: signed access tokens, opaque
// store-backed refresh tokens, and short-lived step-up tokens. Access and
// step-up tokens are signed with disjoint keys so neither can pass as the
// other.
type AuthService struct {
	Store    store.Store
	Sessions store.Sessions // refresh-token sessions, sqlite or redis backed

	Access *jwtx.HS256
	StepUp *jwtx.HS256

	// Rand feeds opaque-token generation. Production passes crypto/rand;
	// tests may pass a deterministic source.
	Rand io.Reader

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	StepUpTTL  time.Duration

	// RotateRefresh replaces the refresh token on every successful refresh.
	// Off by default: clients keep the same refresh token for its lifetime.
	RotateRefresh bool

	Audit *AuditService

	// dummyHash burns an argon2 verification when the email is unknown so
	// lookup misses and hash mismatches take similar time.
	dummyHash string
}

// NewAuthService finishes construction. Call after setting the exported
// fields.
func NewAuthService(s AuthService) (*AuthService, error) {
	dummy, err := cryptox.HashPassword("payvault-timing-equalizer")
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy

	if s.AccessTTL <= 0 {
		s.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if s.RefreshTTL <= 0 {
		s.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if s.StepUpTTL <= 0 {
		s.StepUpTTL = jwtx.DefaultStepUpTokenTTL
	}

	return &s, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway.
			_ = cryptox.VerifyPassword(password, s.dummyHash)
			log.Info("login rejected", "reason", "unknown_email")
			return domain.TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return domain.TokenPair{}, apperr.Wrap(apperr.KindInternal, err, "user lookup failed")
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login rejected", "reason", "password_mismatch", "user_id", user.ID)
			s.Audit.Record(ctx, user.ID, "auth.login_failed", "auth", nil, ip)
			return domain.TokenPair{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return domain.TokenPair{}, apperr.Wrap(apperr.KindInternal, err, "password verification failed")
	}

	pair, err := s.issueTokens(ctx, user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.Audit.Record(ctx, user.ID, "auth.login", "auth", nil, ip)
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is kept or rotated per RotateRefresh.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh, ip string) (domain.TokenPair, error) {
	now := time.Now()

	if rawRefresh == "" {
		return domain.TokenPair{}, apperr.Unauthorized("missing refresh token")
	}

	hash := cryptox.FingerprintToken(rawRefresh)

	sess, err := s.Sessions.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, apperr.Unauthorized("invalid refresh token")
		}
		return domain.TokenPair{}, apperr.Wrap(apperr.KindInternal, err, "session lookup failed")
	}

	if sess.Expired(now) {
		// Lazy expiry: the presented token's row is reaped on sight.
		if err := s.Sessions.DeleteSessionByTokenHash(ctx, hash); err != nil {
			slogx.FromContext(ctx).Warn("expired session cleanup failed", "err", err)
		}
		return domain.TokenPair{}, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Account deleted since the session was issued.
			_ = s.Sessions.DeleteSessionByTokenHash(ctx, hash)
			return domain.TokenPair{}, apperr.Unauthorized("invalid refresh token")
		}
		return domain.TokenPair{}, apperr.Wrap(apperr.KindInternal, err, "user lookup failed")
	}

	access, err := s.signAccess(user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	pair := domain.TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}

	if s.RotateRefresh {
		rotated, err := s.createSession(ctx, user.ID, now)
		if err != nil {
			return domain.TokenPair{}, err
		}
		if err := s.Sessions.DeleteSessionByTokenHash(ctx, hash); err != nil {
			slogx.FromContext(ctx).Warn("rotated session cleanup failed", "err", err)
		}
		pair.RefreshToken = rotated
	}

	return pair, nil
}

// IssueStepUp re-verifies the caller's password and issues a short-lived
// step-up token tagged with its purpose.
func (s *AuthService) IssueStepUp(ctx context.Context, userID int64, password, ip string) (string, int64, error) {
	now := time.Now()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", 0, apperr.Unauthorized(msgInvalidCredentials)
		}
		return "", 0, apperr.Wrap(apperr.KindInternal, err, "user lookup failed")
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			s.Audit.Record(ctx, user.ID, "auth.step_up_failed", "auth", nil, ip)
			return "", 0, apperr.Unauthorized(msgInvalidCredentials)
		}
		return "", 0, apperr.Wrap(apperr.KindInternal, err, "password verification failed")
	}

	token, err := s.StepUp.Sign(jwtx.NewStepUpClaims(user.ID, s.issuer(), s.StepUpTTL, now))
	if err != nil {
		return "", 0, apperr.Wrap(apperr.KindInternal, err, "step-up token signing failed")
	}

	s.Audit.Record(ctx, user.ID, "auth.step_up", "auth", nil, ip)
	return token, int64(s.StepUpTTL.Seconds()), nil
}

// VerifyStepUp checks a step-up token: signature under the step-up key, the
// purpose tag, and that the token belongs to the acting user.
func (s *AuthService) VerifyStepUp(tokenStr string, userID int64) error {
	if tokenStr == "" {
		return apperr.Unauthorized("missing step-up token")
	}

	claims, err := s.StepUp.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return apperr.Unauthorized("step-up token expired")
		}
		return apperr.Unauthorized("invalid step-up token")
	}

	if err := claims.ValidatePurpose(jwtx.PurposeStepUp); err != nil {
		return apperr.Unauthorized("invalid step-up token")
	}

	if claims.UserID != userID {
		// A step-up token is bound to the user who performed the step-up.
		// Someone else's token is no better than no token.
		return apperr.Unauthorized("invalid step-up token")
	}

	return nil
}

// Logout revokes the presented refresh token. Idempotent: revoking an
// unknown or already-revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := s.Sessions.DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(rawRefresh)); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "session delete failed")
	}
	return nil
}

// LogoutAll revokes every refresh token belonging to the user and returns
// how many were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64, ip string) (int64, error) {
	n, err := s.Sessions.DeleteSessionsByUser(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "session sweep failed")
	}
	s.Audit.Record(ctx, userID, "auth.logout_all", "auth", map[string]int64{"revoked": n}, ip)
	return n, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user domain.User, now time.Time) (domain.TokenPair, error) {
	access, err := s.signAccess(user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.createSession(ctx, user.ID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *AuthService) signAccess(user domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Email, user.Role.String(), s.issuer(), s.AccessTTL, now)
	token, err := s.Access.Sign(claims)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "access token signing failed")
	}
	return token, nil
}

// createSession mints a new opaque refresh token, stores its fingerprint,
// and returns the raw token. The raw value is never persisted.
func (s *AuthService) createSession(ctx context.Context, userID int64, now time.Time) (string, error) {
	raw, err := cryptox.GenerateToken(s.Rand, cryptox.TokenSize256)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "refresh token generation failed")
	}

	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.RefreshTTL).UTC(),
		CreatedAt: now.UTC(),
	}

	if err := s.Sessions.CreateSession(ctx, sess); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "session create failed")
	}

	return raw, nil
}

func (s *AuthService) issuer() string {
	if s.Access != nil {
		return s.Access.Issuer()
	}
	return ""
}
