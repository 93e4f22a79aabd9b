package repository

import (
	"context"
	"sync"
	"time"
)

type refreshEntry struct {
	email     string
	expiresAt time.Time
	revoked   bool
}

// TokenRepo stores refresh token hashes. Only the SHA-256 of a raw token is
// kept, never the token itself.
type TokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*refreshEntry
	now    func() time.Time
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[string]*refreshEntry), now: time.Now}
}

// StoreRefresh records a refresh token hash for email.
func (r *TokenRepo) StoreRefresh(ctx context.Context, email, tokenHash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = &refreshEntry{email: email, expiresAt: exp}
	return nil
}

// ValidateRefresh returns the owner of a live token, or ErrNotFound when
// the token is unknown, revoked or expired.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tokens[tokenHash]
	if !ok || e.revoked || r.now().After(e.expiresAt) {
		return "", ErrNotFound
	}
	return e.email, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.tokens[tokenHash]; ok {
		e.revoked = true
	}
	return nil
}

// RevokeAllForUser revokes every active token of email.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.tokens {
		if e.email == email {
			e.revoked = true
		}
	}
	return nil
}

// PurgeExpired drops expired and revoked entries and returns how many were
// removed. The scheduler calls it periodically.
func (r *TokenRepo) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for h, e := range r.tokens {
		if e.revoked || now.After(e.expiresAt) {
			delete(r.tokens, h)
			n++
		}
	}
	return n
}
