package routine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/metrics"
)

// Clock owns a routine State and the once-per-second tick source driving it.
// At most one tick source is live; Start, Pause, Reset and completion each
// retire the previous one, and a generation counter discards ticks from a
// retired source that were already in flight.
//
// Callbacks run on the goroutine that caused the change, after the Clock's
// lock is released, so they may call back into the Clock.
type Clock struct {
	mu      sync.Mutex
	limits  Limits
	pending *Limits
	state   State

	clock  clockwork.Clock
	gen    uint64
	ticker clockwork.Ticker
	stop   chan struct{}

	onChange   func(State)
	onComplete func(State)
	recorder   metrics.Recorder
}

// Option configures a Clock.
type Option func(*Clock)

// WithClock replaces the real-time clock, typically with a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option { return func(k *Clock) { k.clock = c } }

// WithOnChange registers a callback receiving every new State.
func WithOnChange(fn func(State)) Option { return func(k *Clock) { k.onChange = fn } }

// WithOnComplete registers the callback fired exactly once per completed session.
func WithOnComplete(fn func(State)) Option { return func(k *Clock) { k.onComplete = fn } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(k *Clock) { k.recorder = r } }

// NewClock validates limits and returns a stopped Clock at the initial state.
func NewClock(limits Limits, opts ...Option) (*Clock, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	c := &Clock{limits: limits, state: InitialState(limits)}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	c.recorder = metrics.OrNoop(c.recorder)
	return c, nil
}

// State returns a copy of the current state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Limits returns the limits of the current session.
func (c *Clock) Limits() Limits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

// SetLimits stages new limits; they take effect at the next Reset.
func (c *Clock) SetLimits(l Limits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &l
	return nil
}

// Start begins the countdown. It is a no-op while running or once the session
// is complete.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.state.Running || c.state.SessionComplete {
		c.mu.Unlock()
		return
	}
	c.state.Running = true
	c.startTickerLocked()
	s := c.state
	c.mu.Unlock()
	c.notify(s, false)
}

// Pause halts the countdown.
func (c *Clock) Pause() {
	c.mu.Lock()
	if !c.state.Running {
		c.mu.Unlock()
		return
	}
	c.state.Running = false
	c.stopTickerLocked()
	s := c.state
	c.mu.Unlock()
	c.notify(s, false)
}

// Toggle starts a stopped clock and pauses a running one.
func (c *Clock) Toggle() {
	if c.State().Running {
		c.Pause()
		return
	}
	c.Start()
}

// Tick advances one second. It only has effect while running; reaching zero
// triggers the expiry transition in the same step.
func (c *Clock) Tick() {
	c.mu.Lock()
	completed, changed := c.tickLocked()
	s := c.state
	c.mu.Unlock()
	if changed {
		c.notify(s, completed)
	}
}

// OnExpire applies the end-of-hold transition: LEFT moves to RIGHT, RIGHT moves
// to the next repetition, and RIGHT of the last repetition completes the
// session. It is a no-op on a completed session.
func (c *Clock) OnExpire() {
	c.mu.Lock()
	if c.state.SessionComplete {
		c.mu.Unlock()
		return
	}
	completed := c.expireLocked()
	s := c.state
	c.mu.Unlock()
	c.notify(s, completed)
}

// Reset stops the countdown and returns to the initial state, applying any
// staged limits.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.stopTickerLocked()
	if c.pending != nil {
		c.limits = *c.pending
		c.pending = nil
	}
	c.state = InitialState(c.limits)
	s := c.state
	c.mu.Unlock()
	c.notify(s, false)
}

// StartNextSession resets the clock and returns the next session index,
// capped at the maximum number of sessions. Nothing is persisted.
func (c *Clock) StartNextSession(current int) int {
	c.Reset()
	return NextSessionIndex(current, c.Limits().MaxSessions)
}

// Close retires the tick source.
func (c *Clock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
}

func (c *Clock) tickLocked() (completed, changed bool) {
	if !c.state.Running || c.state.SecondsRemaining <= 0 {
		return false, false
	}
	c.state.SecondsRemaining--
	if c.state.SecondsRemaining == 0 {
		return c.expireLocked(), true
	}
	return false, true
}

func (c *Clock) expireLocked() bool {
	leg := c.state.Leg
	completed := c.state.advance(c.limits.HoldSeconds)
	c.recorder.IncHoldCompleted(leg.Label())
	if completed {
		c.stopTickerLocked()
		c.recorder.IncSessionCompleted()
		slog.Info("Session complete", logfields.Repetition(c.state.Repetition))
	} else {
		slog.Debug("Hold complete", logfields.Leg(leg.Label()), logfields.Repetition(c.state.Repetition))
	}
	return completed
}

func (c *Clock) startTickerLocked() {
	c.stopTickerLocked()
	ticker := c.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	c.ticker, c.stop = ticker, stop
	go c.run(c.gen, ticker, stop)
}

// stopTickerLocked retires the live tick source, if any, and bumps the generation.
func (c *Clock) stopTickerLocked() {
	c.gen++
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stop)
		c.ticker, c.stop = nil, nil
	}
}

func (c *Clock) run(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if gen != c.gen {
				c.mu.Unlock()
				return
			}
			completed, changed := c.tickLocked()
			s := c.state
			c.mu.Unlock()
			if changed {
				c.notify(s, completed)
			}
			if completed {
				return
			}
		}
	}
}

func (c *Clock) notify(s State, completed bool) {
	if c.onChange != nil {
		c.onChange(s)
	}
	if completed && c.onComplete != nil {
		c.onComplete(s)
	}
}
