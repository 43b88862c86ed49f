package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panyu/myblog/core"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(WithClock(clock.Now))

	require.NoError(t, s.Set(ctx, "k", "v", 10*time.Second))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 10*time.Second, s.TTL("k"))

	clock.Advance(10 * time.Second)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, s.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	for _, k := range []string{"a", "b"} {
		ok, err := s.Exists(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestMemoryStoreIncrBelow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(WithClock(clock.Now))

	for want := int64(1); want <= 3; want++ {
		n, ok, err := s.IncrBelow(ctx, "c", 3, 30*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, n)
	}

	clock.Advance(5 * time.Second)
	n, ok, err := s.IncrBelow(ctx, "c", 3, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), n)
	// a refused increment does not extend the window
	assert.Equal(t, 25*time.Second, s.TTL("c"))

	clock.Advance(25 * time.Second)
	n, ok, err = s.IncrBelow(ctx, "c", 3, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStoreIncrBelowConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.IncrBelow(ctx, "race", 3, time.Minute)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, granted)
}
