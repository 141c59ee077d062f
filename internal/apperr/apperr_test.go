package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tabwave/payvault/internal/apperr"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, apperr.KindUnauthorized, apperr.KindOf(apperr.Unauthorized("invalid credentials")))
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(apperr.Forbidden("nope")))
	require.Equal(t, apperr.KindValidation, apperr.KindOf(apperr.Validation("bad input")))
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(apperr.NotFound("missing")))

	// Untagged errors categorize as internal.
	require.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("disk on fire")))
	require.Equal(t, apperr.KindInternal, apperr.KindOf(apperr.Internal(errors.New("boom"))))
}

func TestKindSurvivesWrapping(t *testing.T) {
	t.Parallel()

	inner := apperr.NotFound("user not found")
	wrapped := fmt.Errorf("handling request: %w", inner)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(wrapped))
	require.Equal(t, "user not found", apperr.MessageOf(wrapped))
}

func TestMessageOfNeverLeaksInternalDetail(t *testing.T) {
	t.Parallel()

	err := apperr.Internal(errors.New(`pq: syntax error in "SELECT * FROM users"`))
	require.Equal(t, "internal error", apperr.MessageOf(err))
	require.Equal(t, "internal error", apperr.MessageOf(errors.New("raw query text")))
}

func TestErrorsIsMatchesByKindAndMessage(t *testing.T) {
	t.Parallel()

	sentinel := apperr.Unauthorized("invalid credentials")
	got := apperr.Unauthorized("invalid credentials")
	require.ErrorIs(t, got, sentinel)

	other := apperr.Unauthorized("token expired")
	require.NotErrorIs(t, other, sentinel)
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("row scan failed")
	err := apperr.Wrap(apperr.KindInternal, cause, "loading session")
	require.ErrorIs(t, err, cause)
}
