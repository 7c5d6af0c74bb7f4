package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
)

// Authenticator checks operator credentials and tokens.
//
// Thread Safety:
//   - Safe for concurrent use; the operator table is immutable.
type Authenticator struct {
	secret    string
	ttl       time.Duration
	operators map[string]string

	// dummyHash is verified for unknown usernames so that both paths
	// cost one Argon2id derivation.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator builds an Authenticator from the security section.
func NewAuthenticator(cfg config.SecurityConfig) *Authenticator {
	ops := make(map[string]string, len(cfg.Operators))
	for _, op := range cfg.Operators {
		ops[op.Username] = op.PasswordHash
	}
	return &Authenticator{
		secret:    cfg.JWT.Secret,
		ttl:       time.Duration(cfg.JWT.AccessTokenTTL) * time.Minute,
		operators: ops,
	}
}

// Enabled reports whether writes require a token.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.secret != ""
}

// Login verifies credentials and issues a token.
//
// Returns:
//   - string: Signed token
//   - time.Time: Expiry
//   - error: ErrInvalidCredentials, or ErrNoSecret when auth is disabled
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}

	hash, ok := a.operators[username]
	if !ok {
		_, _ = VerifyPassword(password, a.dummy()) //nolint:errcheck // timing only
		return "", time.Time{}, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, hash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: stored hash for %s: %w", ErrInvalidCredentials, username, err)
	}
	if !match {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return GenerateToken(username, a.secret, a.ttl)
}

// Verify parses and validates a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if !a.Enabled() {
		return nil, ErrNoSecret
	}
	return ParseToken(token, a.secret)
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := HashPassword("thermalmon-dummy")
		if err == nil {
			a.dummyHash = h
		}
	})
	return a.dummyHash
}
