package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenDeny(t *testing.T) {
	limiter := NewTokenBucketLimiter(3, time.Hour)
	defer limiter.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d inside burst must pass", i)
	}

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed, "request beyond burst must be denied")
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Hour)
	defer limiter.Stop()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, allowed, "another client keeps its own bucket")
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 20*time.Millisecond)
	defer limiter.Stop()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(50 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed, "bucket must refill over time")
}

func TestTokenBucketLimiter_SetBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Hour)
	defer limiter.Stop()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, allowed)

	limiter.SetBurst(3)
	assert.Equal(t, 3, limiter.Burst())

	for i := 0; i < 3; i++ {
		allowed, err = limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d after the raise must pass", i)
	}

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed, "the raised capacity still bounds the client")
}

func TestTokenBucketLimiter_SetBurstIgnoresNonPositive(t *testing.T) {
	limiter := NewTokenBucketLimiter(2, time.Hour)
	defer limiter.Stop()

	limiter.SetBurst(0)
	assert.Equal(t, 2, limiter.Burst())

	limiter.SetBurst(-5)
	assert.Equal(t, 2, limiter.Burst())
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Hour)
	defer limiter.Stop()
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "client-a"))

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed, "reset restores the full burst")
}
