package verification

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, tok, 16)
		assert.Regexp(t, `^[A-Z2-7]+$`, tok)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestMemoryStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ABC", "a@b.com", time.Minute))

	owner, ok, err := s.Redeem(ctx, "ABC")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@b.com", owner)

	_, ok, err = s.Redeem(ctx, "ABC")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = s.Redeem(ctx, "unknown")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "OLD", "a@b.com", 10*time.Minute))
	require.NoError(t, s.Put(ctx, "USED", "a@b.com", time.Hour))
	_, _, _ = s.Redeem(ctx, "USED")
	require.NoError(t, s.Put(ctx, "FRESH", "a@b.com", time.Hour))

	now = now.Add(11 * time.Minute)
	_, ok, _ := s.Redeem(ctx, "OLD")
	assert.False(t, ok)

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())

	owner, ok, _ := s.Redeem(ctx, "FRESH")
	assert.True(t, ok)
	assert.Equal(t, "a@b.com", owner)
}

func TestMemoryStore_PutRejectsLiveDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "DUP", "a@b.com", time.Minute))
	assert.ErrorIs(t, s.Put(ctx, "DUP", "c@d.com", time.Minute), ErrTokenExists)

	_, _, _ = s.Redeem(ctx, "DUP")
	assert.NoError(t, s.Put(ctx, "DUP", "c@d.com", time.Minute))
}

func TestMemoryStore_ConcurrentRedeemFirstWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "RACE", "a@b.com", time.Minute))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.Redeem(ctx, "RACE"); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestMemoryStore_RunJanitorStops(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Millisecond, nil)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestTokenKey(t *testing.T) {
	k := tokenKey("ABC")
	assert.Equal(t, k, tokenKey("ABC"))
	assert.NotEqual(t, k, tokenKey("ABD"))
	assert.NotContains(t, k, "ABC")
	assert.Len(t, k, len("verify:token:")+64)
}

func TestMemoryStore_RejectsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Put(ctx, "ZERO", "a@b.com", 0), ErrInvalidTTL)
	assert.ErrorIs(t, s.Put(ctx, "NEG", "a@b.com", -time.Second), ErrInvalidTTL)
	assert.Zero(t, s.Len())
}
