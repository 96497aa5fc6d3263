package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAdmitsUpToMax(t *testing.T) {
	l := New()

	var results []bool
	for i := 0; i < 4; i++ {
		results = append(results, l.Allow("client", 3, time.Second).Allowed)
	}

	assert.Equal(t, []bool{true, true, true, false}, results)
}

func TestRemainingCountsDown(t *testing.T) {
	l := New()

	assert.Equal(t, 2, l.Allow("c", 3, time.Second).Remaining)
	assert.Equal(t, 1, l.Allow("c", 3, time.Second).Remaining)
	assert.Equal(t, 0, l.Allow("c", 3, time.Second).Remaining)
	assert.Equal(t, 0, l.Allow("c", 3, time.Second).Remaining)
}

func TestWindowResetsAfterElapse(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("c", 3, 30*time.Millisecond).Allowed)
	}
	require.False(t, l.Allow("c", 3, 30*time.Millisecond).Allowed)

	time.Sleep(40 * time.Millisecond)

	res := l.Allow("c", 3, 30*time.Millisecond)
	assert.True(t, res.Allowed)
	// count restarted at 1
	assert.Equal(t, 2, res.Remaining)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l := New()

	require.True(t, l.Allow("a", 1, time.Second).Allowed)
	require.False(t, l.Allow("a", 1, time.Second).Allowed)
	assert.True(t, l.Allow("b", 1, time.Second).Allowed)
}

func TestSweepDropsElapsedWindows(t *testing.T) {
	l := New()

	l.Allow("stale", 3, time.Millisecond)
	l.Allow("live", 3, time.Minute)
	time.Sleep(5 * time.Millisecond)

	l.Sweep(time.Now())

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.windows, "stale")
	assert.Contains(t, l.windows, "live")
}

func TestResetClearsState(t *testing.T) {
	l := New()

	require.False(t, func() bool {
		l.Allow("c", 1, time.Minute)
		return l.Allow("c", 1, time.Minute).Allowed
	}())

	l.Reset()
	assert.True(t, l.Allow("c", 1, time.Minute).Allowed)
}
