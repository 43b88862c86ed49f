package service

import (
	"context"
	"fmt"
	"time"

	"github.com/panyu/myblog/ports"
)

const revokedPrefix = "auth:revoked:"

// ExpiryDecoder reads a token's expiry without re-signing it
type ExpiryDecoder interface {
	ExpiresAt(token string) (time.Time, error)
}

// RevocationLedger records tokens that must be rejected before their natural
// expiry. Each entry lives exactly as long as the token it revokes, so the
// ledger only ever holds currently valid, revoked tokens.
type RevocationLedger struct {
	store   ports.KeyValueStore
	decoder ExpiryDecoder
	now     func() time.Time
}

// NewRevocationLedger creates a ledger on top of store
func NewRevocationLedger(store ports.KeyValueStore, decoder ExpiryDecoder) *RevocationLedger {
	return &RevocationLedger{
		store:   store,
		decoder: decoder,
		now:     time.Now,
	}
}

// WithClock replaces time.Now, mainly for tests
func (l *RevocationLedger) WithClock(now func() time.Time) *RevocationLedger {
	l.now = now
	return l
}

// Revoke stores token until its own expiry. Already expired tokens are ignored.
func (l *RevocationLedger) Revoke(ctx context.Context, token string) error {
	expiresAt, err := l.decoder.ExpiresAt(token)
	if err != nil {
		return fmt.Errorf("failed to decode token expiry: %w", err)
	}

	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}

	if err := l.store.Set(ctx, revokedPrefix+token, "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token is in the ledger. Callers must treat an
// error as "revoked".
func (l *RevocationLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	ok, err := l.store.Exists(ctx, revokedPrefix+token)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return ok, nil
}
