// Package memory keeps password reset tokens in process memory. It is used
// when no Redis address is configured; tokens do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/repository"
)

var _ repository.ResetTokenRepository = (*ResetTokens)(nil)

type entry struct {
	userID    string
	expiresAt time.Time
}

type ResetTokens struct {
	mu     sync.Mutex
	tokens map[string]entry
	now    func() time.Time
}

func NewResetTokens() *ResetTokens {
	return &ResetTokens{
		tokens: make(map[string]entry),
		now:    time.Now,
	}
}

func (r *ResetTokens) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	r.tokens[token] = entry{userID: userID, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *ResetTokens) Lookup(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(token)
	if !ok {
		return "", apperror.NotFound("reset token", "(redacted)")
	}
	return e.userID, nil
}

func (r *ResetTokens) Consume(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.liveLocked(token)
	if !ok {
		return "", apperror.NotFound("reset token", "(redacted)")
	}
	delete(r.tokens, token)
	return e.userID, nil
}

func (r *ResetTokens) liveLocked(token string) (entry, bool) {
	e, ok := r.tokens[token]
	if !ok {
		return entry{}, false
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.tokens, token)
		return entry{}, false
	}
	return e, true
}

// sweepLocked drops expired tokens so the map cannot grow without bound.
func (r *ResetTokens) sweepLocked() {
	now := r.now()
	for token, e := range r.tokens {
		if !now.Before(e.expiresAt) {
			delete(r.tokens, token)
		}
	}
}
