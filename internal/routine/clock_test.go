package routine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

func assertStateBounds(t *testing.T, s State, l Limits) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Repetition, 1)
	assert.LessOrEqual(t, s.Repetition, l.RepsPerSession)
	assert.GreaterOrEqual(t, s.SecondsRemaining, 0)
	assert.LessOrEqual(t, s.SecondsRemaining, l.HoldSeconds)
	if s.SessionComplete {
		assert.False(t, s.Running, "complete session must not run")
	}
}

func newTestClock(t *testing.T, l Limits, completions *atomic.Int32) (*Clock, *clockwork.FakeClock) {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	c, err := NewClock(l,
		WithClock(fake),
		WithOnComplete(func(State) { completions.Add(1) }),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, fake
}

func TestNewClock_RejectsInvalidLimits(t *testing.T) {
	_, err := NewClock(Limits{HoldSeconds: -1, RepsPerSession: 6, MaxSessions: 4})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestClock_InitialState(t *testing.T) {
	var n atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &n)
	s := c.State()
	assert.Equal(t, LegLeft, s.Leg)
	assert.Equal(t, 1, s.Repetition)
	assert.Equal(t, 30, s.SecondsRemaining)
	assert.False(t, s.Running)
	assert.False(t, s.SessionComplete)
}

func TestClock_TwelveExpiriesCompleteSessionOnce(t *testing.T) {
	var completions atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &completions)
	c.Reset()

	for i := range 12 {
		assert.False(t, c.State().SessionComplete, "completed early at expiry %d", i)
		c.OnExpire()
		assertStateBounds(t, c.State(), DefaultLimits())
	}

	s := c.State()
	assert.True(t, s.SessionComplete)
	assert.False(t, s.Running)
	assert.Equal(t, int32(1), completions.Load())

	c.OnExpire()
	assert.Equal(t, int32(1), completions.Load(), "expiry after completion is ignored")
}

func TestClock_TransitionTable(t *testing.T) {
	var n atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &n)

	c.OnExpire()
	s := c.State()
	assert.Equal(t, LegRight, s.Leg)
	assert.Equal(t, 1, s.Repetition)
	assert.Equal(t, 30, s.SecondsRemaining)

	c.OnExpire()
	s = c.State()
	assert.Equal(t, LegLeft, s.Leg)
	assert.Equal(t, 2, s.Repetition)
	assert.Equal(t, 30, s.SecondsRemaining)
}

func TestClock_ManualTicksStayInBounds(t *testing.T) {
	var completions atomic.Int32
	l := Limits{HoldSeconds: 3, RepsPerSession: 2, MaxSessions: 4}
	c, _ := newTestClock(t, l, &completions)
	c.Start()

	// 4 holds of 3 seconds.
	for range 12 {
		c.Tick()
		assertStateBounds(t, c.State(), l)
	}
	assert.True(t, c.State().SessionComplete)
	assert.Equal(t, int32(1), completions.Load())

	c.Tick()
	c.Start()
	assert.False(t, c.State().Running, "start is a no-op on a completed session")
}

func TestClock_TickIgnoredWhilePaused(t *testing.T) {
	var n atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &n)
	c.Tick()
	assert.Equal(t, 30, c.State().SecondsRemaining)
}

func TestClock_FakeClockDrivesCountdown(t *testing.T) {
	var completions atomic.Int32
	l := Limits{HoldSeconds: 2, RepsPerSession: 1, MaxSessions: 4}
	c, fake := newTestClock(t, l, &completions)

	c.Start()
	require.NoError(t, fake.BlockUntilContext(context.Background(), 1))

	expect := []struct {
		leg     Leg
		seconds int
	}{
		{LegLeft, 1},
		{LegRight, 2},
		{LegRight, 1},
	}
	for _, want := range expect {
		fake.Advance(time.Second)
		require.Eventually(t, func() bool {
			s := c.State()
			return s.Leg == want.leg && s.SecondsRemaining == want.seconds
		}, time.Second, 5*time.Millisecond, "want %s %d", want.leg, want.seconds)
	}

	fake.Advance(time.Second)
	require.Eventually(t, func() bool { return c.State().SessionComplete }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), completions.Load())
	assert.False(t, c.State().Running)
}

func TestClock_PauseStopsTicking(t *testing.T) {
	var n atomic.Int32
	c, fake := newTestClock(t, DefaultLimits(), &n)

	c.Start()
	require.NoError(t, fake.BlockUntilContext(context.Background(), 1))
	fake.Advance(time.Second)
	require.Eventually(t, func() bool { return c.State().SecondsRemaining == 29 }, time.Second, 5*time.Millisecond)

	c.Pause()
	assert.False(t, c.State().Running)
	fake.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 29, c.State().SecondsRemaining)

	c.Toggle()
	assert.True(t, c.State().Running)
	c.Toggle()
	assert.False(t, c.State().Running)
}

func TestClock_ResetAndNextSession(t *testing.T) {
	var n atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &n)
	for range 12 {
		c.OnExpire()
	}
	require.True(t, c.State().SessionComplete)

	assert.Equal(t, 2, c.StartNextSession(1))
	assert.Equal(t, InitialState(DefaultLimits()), c.State())
	assert.Equal(t, 4, c.StartNextSession(4), "session index is capped")
}

func TestClock_SetLimitsAppliesOnReset(t *testing.T) {
	var n atomic.Int32
	c, _ := newTestClock(t, DefaultLimits(), &n)

	require.Error(t, c.SetLimits(Limits{}))
	require.NoError(t, c.SetLimits(Limits{HoldSeconds: 45, RepsPerSession: 3, MaxSessions: 2}))
	assert.Equal(t, 30, c.State().SecondsRemaining, "current session keeps its limits")

	c.Reset()
	assert.Equal(t, 45, c.State().SecondsRemaining)
	assert.Equal(t, 2, c.StartNextSession(2))
}

func TestClock_OnChangeReceivesSnapshots(t *testing.T) {
	var got []State
	c, err := NewClock(DefaultLimits(), WithClock(clockwork.NewFakeClock()), WithOnChange(func(s State) { got = append(got, s) }))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	c.Tick()
	c.Pause()
	require.Len(t, got, 3)
	assert.True(t, got[0].Running)
	assert.Equal(t, 29, got[1].SecondsRemaining)
	assert.False(t, got[2].Running)
}
