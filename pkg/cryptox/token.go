package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a random opaque token of the given byte length from
// the provided random source, returned base64url-encoded without padding.
//
// The source is a parameter rather than crypto/rand directly so callers can
// substitute a deterministic reader in tests. Production callers pass
// crypto/rand.Reader.
func GenerateToken(src io.Reader, size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// base64url-encoded. Stores keep the fingerprint instead of the raw value so
// a database leak does not hand out usable credentials, while lookups remain
// single-key point reads.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
