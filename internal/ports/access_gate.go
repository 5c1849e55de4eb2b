package ports

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/fermpi/internal/domain"
)

// AccessGate checks the operator credential and tracks login sessions.
// Sessions live in memory; a restart logs everyone out.
type AccessGate struct {
	creds domain.CredentialStore
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
}

// NewAccessGate creates a gate whose sessions last ttl
func NewAccessGate(creds domain.CredentialStore, ttl time.Duration) *AccessGate {
	return &AccessGate{
		creds:    creds,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Login verifies user and password and opens a session.
// Returns domain.ErrAuthentication on any mismatch.
func (g *AccessGate) Login(ctx context.Context, user, password string) (string, error) {
	cred, err := g.creds.Credential(ctx)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		log.Warn().Msg("login attempted but no operator credential is configured")
		return "", domain.ErrAuthentication
	}
	if err != nil {
		return "", err
	}

	if !cred.Matches(user, password) {
		log.Info().Str("user", user).Msg("rejected login")
		return "", domain.ErrAuthentication
	}

	token := uuid.NewString()
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for t, expiry := range g.sessions {
		if !now.Before(expiry) {
			delete(g.sessions, t)
		}
	}
	g.sessions[token] = now.Add(g.ttl)

	log.Info().Str("user", user).Msg("operator logged in")
	return token, nil
}

// Authenticated reports whether token belongs to a live session
func (g *AccessGate) Authenticated(token string) bool {
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.sessions[token]
	if !ok {
		return false
	}
	if !g.now().Before(expiry) {
		delete(g.sessions, token)
		return false
	}
	return true
}

// Logout ends the session; unknown tokens are ignored
func (g *AccessGate) Logout(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, token)
}
