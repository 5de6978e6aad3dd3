package guard

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 20)

	// 20 messages pass...
	for i := 0; i < 20; i++ {
		require.NoError(t, rl.CheckAndConsume("sess-1", 1), "message %d should pass", i+1)
	}

	// ...the 21st within the window is throttled with a retry hint.
	err := rl.CheckAndConsume("sess-1", 1)
	require.Error(t, err)

	var throttled *ThrottledError
	require.True(t, errors.As(err, &throttled))
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, throttled.RetryAfter, time.Minute)

	// Other identities are unaffected.
	assert.NoError(t, rl.CheckAndConsume("sess-2", 1))
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(30*time.Millisecond, 2)

	require.NoError(t, rl.CheckAndConsume("ip", 1))
	require.NoError(t, rl.CheckAndConsume("ip", 1))
	require.Error(t, rl.CheckAndConsume("ip", 1))

	time.Sleep(40 * time.Millisecond)

	// Window elapsed: counter resets and messages are accepted again.
	assert.NoError(t, rl.CheckAndConsume("ip", 1))
}

func TestRateLimiterWeight(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 3)

	require.NoError(t, rl.CheckAndConsume("k", 2))
	require.Error(t, rl.CheckAndConsume("k", 2))
	assert.NoError(t, rl.CheckAndConsume("k", 1))
}

func TestConcurrencyGuardCap(t *testing.T) {
	g := NewConcurrencyGuard(10, time.Minute)
	defer g.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, g.RegisterActivity(fmt.Sprintf("sess-%d", i)))
	}
	assert.Equal(t, 10, g.ActiveCount())

	// The 11th never-seen session is rejected...
	assert.ErrorIs(t, g.RegisterActivity("sess-new"), ErrCapacity)

	// ...while all existing sessions stay fully functional.
	for i := 0; i < 10; i++ {
		assert.NoError(t, g.RegisterActivity(fmt.Sprintf("sess-%d", i)))
	}
	assert.Equal(t, 10, g.ActiveCount())
}

func TestConcurrencyGuardReleaseFreesSlot(t *testing.T) {
	g := NewConcurrencyGuard(1, time.Minute)
	defer g.Stop()

	require.NoError(t, g.RegisterActivity("a"))
	require.ErrorIs(t, g.RegisterActivity("b"), ErrCapacity)

	g.Release("a")
	assert.NoError(t, g.RegisterActivity("b"))
}

func TestConcurrencyGuardSweep(t *testing.T) {
	g := NewConcurrencyGuard(5, 10*time.Millisecond)
	defer g.Stop()

	require.NoError(t, g.RegisterActivity("stale"))
	time.Sleep(20 * time.Millisecond)
	g.sweep(time.Now())

	assert.Equal(t, 0, g.ActiveCount())
	assert.NoError(t, g.RegisterActivity("fresh"))
}
