package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCallRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewCallRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("u1"), "attempt %d", i)
	}
	require.False(t, rl.Allow("u1"))
	require.True(t, rl.Allow("u2"), "limits are per identity")
}

func TestCallRateLimiter_WindowSlides(t *testing.T) {
	rl := NewCallRateLimiter(1, 10*time.Millisecond)

	require.True(t, rl.Allow("u1"))
	require.False(t, rl.Allow("u1"))

	time.Sleep(15 * time.Millisecond)
	require.True(t, rl.Allow("u1"))
}

func TestCallRateLimiter_ZeroLimitDisables(t *testing.T) {
	rl := NewCallRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("u1"))
	}
}
