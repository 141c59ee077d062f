// Package urlguard validates merchant-supplied callback URLs before they are
// accepted into configuration. The service later POSTs payout notifications
// to these URLs, so an unchecked value is a server-side request forgery
// vector toward internal hosts.
package urlguard

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrMalformed reports input that does not parse as an absolute URL.
	ErrMalformed = errors.New("urlguard: malformed url")

	// ErrScheme reports a non-https scheme.
	ErrScheme = errors.New("urlguard: callback url must use https")

	// ErrHostNotAllowed reports a hostname outside the allowlist.
	ErrHostNotAllowed = errors.New("urlguard: host not in allowlist")

	// ErrPrivateAddress reports a hostname pointing at localhost, a loopback
	// address, or a private network range.
	ErrPrivateAddress = errors.New("urlguard: private or local addresses not allowed")
)

// Validator checks callback URLs against a fixed host allowlist and a
// private-network denylist. Construct once at startup and share; it is
// immutable and safe for concurrent use.
type Validator struct {
	allowed map[string]struct{}
	hosts   []string // retained for error messages, original order
}

// New builds a Validator from the configured allowlist. Hostnames are
// compared case-insensitively.
func New(allowedHosts []string) *Validator {
	v := &Validator{
		allowed: make(map[string]struct{}, len(allowedHosts)),
		hosts:   append([]string(nil), allowedHosts...),
	}
	for _, h := range allowedHosts {
		v.allowed[strings.ToLower(h)] = struct{}{}
	}
	return v
}

// Validate runs the full check chain in order, short-circuiting on the first
// failure: parse, scheme, allowlist, private-address denylist. Validation is
// a gate, not a transform: success returns nil and nothing else.
//
// The denylist check runs even though the allowlist already constrains the
// hostname to a fixed set: allowlist entries are configuration and a mis-set
// entry must not open a path to internal networks.
func (v *Validator) Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !u.IsAbs() {
		return fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	// Scheme check is unconditional, independent of host.
	if u.Scheme != "https" {
		return fmt.Errorf("%w, got %q", ErrScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := v.allowed[host]; !ok {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrHostNotAllowed, host, strings.Join(v.hosts, ", "))
	}

	if isPrivateHost(host) {
		return fmt.Errorf("%w: %q", ErrPrivateAddress, host)
	}

	return nil
}

// isPrivateHost reports whether the hostname names localhost or an IP
// literal in a loopback, private, link-local, multicast or unspecified
// range.
func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false // not an IP literal
	}
	ip = ip.Unmap()

	return !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
