package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyu/myblog/adapters/store"
)

func TestRevokeLastsExactlyAsLongAsToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	token, err := f.tokens.Mint("1")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	require.NoError(t, f.ledger.Revoke(ctx, token))
	assert.Equal(t, 40*time.Minute, f.store.TTL(revokedPrefix+token))

	revoked, err := f.ledger.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	f.clock.Advance(39 * time.Minute)
	revoked, err = f.ledger.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	f.clock.Advance(time.Minute)
	revoked, err = f.ledger.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeIgnoresExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	token, err := f.tokens.Mint("1")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.ledger.Revoke(ctx, token))

	revoked, err := f.ledger.IsRevoked(ctx, token)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.ledger.Revoke(context.Background(), "garbage"))
}

type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestIsRevokedSurfacesStoreFailure(t *testing.T) {
	f := newFixture(t)
	ledger := NewRevocationLedger(brokenStore{f.store}, f.tokens)

	_, err := ledger.IsRevoked(context.Background(), "anything")
	assert.Error(t, err)
}
