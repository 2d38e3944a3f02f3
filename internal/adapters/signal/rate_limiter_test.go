package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHelpRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewHelpRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("a"))
	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
	require.True(t, rl.Allow("b"))

	now = now.Add(61 * time.Second)
	require.True(t, rl.Allow("a"))
	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
}

func TestHelpRateLimiterDropsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewHelpRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		require.True(t, rl.Allow(key))
	}
	require.Len(t, rl.history, 3)

	now = now.Add(30 * time.Second)
	require.True(t, rl.Allow("a"))

	now = now.Add(45 * time.Second)
	require.True(t, rl.Allow("d"))
	require.Len(t, rl.history, 2)
	require.Contains(t, rl.history, "a")
	require.Contains(t, rl.history, "d")
}

func TestHelpRateLimiterDisabled(t *testing.T) {
	var nilLimiter *HelpRateLimiter
	require.True(t, nilLimiter.Allow("a"))

	rl := NewHelpRateLimiter(0, time.Minute)
	for range 10 {
		require.True(t, rl.Allow("a"))
	}
}
