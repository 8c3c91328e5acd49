package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/securechat-go/internal/dependencies/mocks"
)

func newTestLimiter() (*Limiter, *mocks.MockClock) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(clk, DefaultConfig()), clk
}

func TestAdmitAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Admit("alice"), "send %d should be admitted", i+1)
	}
	assert.False(t, limiter.Admit("alice"), "sixth send in the window should be denied")
}

func TestAdmitDeniesSixthWithinWindow(t *testing.T) {
	limiter, clk := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}

	clk.Advance(1 * time.Second)
	assert.False(t, limiter.Admit("alice"), "sixth send at t=1 should be denied")
}

func TestAdmitAllowsAfterWindowExpires(t *testing.T) {
	limiter, clk := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}

	clk.Advance(11 * time.Second)
	assert.True(t, limiter.Admit("alice"), "send at t=11 should be admitted")
}

func TestWindowBoundaryIsExclusive(t *testing.T) {
	limiter, clk := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}

	// Entries exactly Window old are pruned, so the boundary send
	// is admitted
	clk.Advance(10 * time.Second)
	assert.True(t, limiter.Admit("alice"), "send at exactly t=10 should be admitted")
}

func TestDenialDoesNotConsumeASlot(t *testing.T) {
	limiter, clk := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}

	// Hammering while denied must not extend the lockout
	for i := 0; i < 20; i++ {
		clk.Advance(100 * time.Millisecond)
		require.False(t, limiter.Admit("alice"))
	}

	// 10s after the original burst the window is clear
	clk.Advance(9 * time.Second)
	assert.True(t, limiter.Admit("alice"))
}

func TestIdentitiesAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}

	assert.False(t, limiter.Admit("alice"))
	assert.True(t, limiter.Admit("bob"), "bob's window is unaffected by alice's")
}

func TestForgetResetsWindow(t *testing.T) {
	limiter, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("alice"))
	}
	require.False(t, limiter.Admit("alice"))

	limiter.Forget("alice")
	assert.True(t, limiter.Admit("alice"))
}

func TestDegenerateConfigFallsBackToDefaults(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	for _, cfg := range []Config{
		{},
		{Window: 10 * time.Second},
		{Window: 10 * time.Second, Limit: -1},
		{Window: -time.Second, Limit: 5},
	} {
		limiter := New(clk, cfg)
		for i := 0; i < 5; i++ {
			require.True(t, limiter.Admit("alice"), "config %+v should admit send %d", cfg, i+1)
		}
		assert.False(t, limiter.Admit("alice"), "config %+v should deny the sixth send", cfg)
	}
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	limiter, _ := newTestLimiter()

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit("alice") {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	assert.Equal(t, 5, count, "exactly the limit should be admitted under contention")
}
