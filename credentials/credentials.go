// Package credentials provides the credential value types and the pluggable
// provider chain used to obtain signing credentials: static values,
// well-known environment variables, the ~/.tencentcloud/credentials profile
// file, and an expiry-aware caching wrapper with deduplicated refresh.
package credentials

import (
	"time"
)

// Credential is the capability the signer needs: a secret id/key pair and an
// optional session token. Implementations are value types, freely copyable
// and never mutated in place.
type Credential interface {
	// SecretID returns the credential identifier (AKID...).
	SecretID() string
	// SecretKey returns the signing secret.
	SecretKey() string
	// Token returns the session token, or "" for long-lived credentials.
	Token() string
}

// Static is a plain immutable credential.
type Static struct {
	ID           string
	Key          string
	SessionToken string
}

// New returns a Static credential from an id/key pair.
func New(id, key string) Static {
	return Static{ID: id, Key: key}
}

// NewWithToken returns a Static credential carrying a session token.
func NewWithToken(id, key, token string) Static {
	return Static{ID: id, Key: key, SessionToken: token}
}

// SecretID implements Credential.
func (c Static) SecretID() string { return c.ID }

// SecretKey implements Credential.
func (c Static) SecretKey() string { return c.Key }

// Token implements Credential.
func (c Static) Token() string { return c.SessionToken }

// Expiring is a credential with a known expiration instant, typically issued
// by STS. The TemporaryProvider refreshes it before it lapses.
type Expiring struct {
	Static
	// ExpiresAt is the instant after which the credential is rejected.
	ExpiresAt time.Time
}

// NewExpiring returns an Expiring credential.
func NewExpiring(id, key, token string, expiresAt time.Time) Expiring {
	return Expiring{Static: Static{ID: id, Key: key, SessionToken: token}, ExpiresAt: expiresAt}
}

// IsExpiring reports whether the credential expires within d, defined as
// now+d >= ExpiresAt. The boundary counts as expiring.
func (c Expiring) IsExpiring(within time.Duration) bool {
	return !time.Now().Add(within).Before(c.ExpiresAt)
}
