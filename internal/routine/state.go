// Package routine implements the session clock: a one-hold-at-a-time countdown
// that walks a stretching session through legs and repetitions.
package routine

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

// Leg is the side currently being stretched.
type Leg string

const (
	LegLeft  Leg = "LEFT"
	LegRight Leg = "RIGHT"
)

// Label is the lower-case form used in metrics and display.
func (l Leg) Label() string { return strings.ToLower(string(l)) }

// Limits is the shape of one session.
type Limits struct {
	HoldSeconds    int
	RepsPerSession int
	MaxSessions    int
}

// DefaultLimits is a 30 second hold, 6 repetitions, 4 sessions per day.
func DefaultLimits() Limits {
	return Limits{HoldSeconds: 30, RepsPerSession: 6, MaxSessions: 4}
}

// Validate rejects non-positive limits.
func (l Limits) Validate() error {
	if l.HoldSeconds < 1 || l.RepsPerSession < 1 || l.MaxSessions < 1 {
		return ferrors.ValidationError("routine limits must be positive").
			WithContext("hold_seconds", l.HoldSeconds).
			WithContext("reps_per_session", l.RepsPerSession).
			WithContext("max_sessions", l.MaxSessions).
			Build()
	}
	return nil
}

// State is a snapshot of progress through one session.
type State struct {
	Leg              Leg  `json:"leg"`
	Repetition       int  `json:"repetition"`
	SecondsRemaining int  `json:"seconds_remaining"`
	Running          bool `json:"running"`
	SessionComplete  bool `json:"session_complete"`

	HoldSeconds    int `json:"hold_seconds"`
	RepsPerSession int `json:"reps_per_session"`
}

// InitialState is LEFT leg, repetition 1, full hold, stopped.
func InitialState(l Limits) State {
	return State{
		Leg:              LegLeft,
		Repetition:       1,
		SecondsRemaining: l.HoldSeconds,
		HoldSeconds:      l.HoldSeconds,
		RepsPerSession:   l.RepsPerSession,
	}
}

// TotalHolds is the number of holds in a full session.
func (s State) TotalHolds() int { return 2 * s.RepsPerSession }

// Percent is the session progress used for display. A completed session stays
// at the value of its last hold.
func (s State) Percent() float64 {
	if s.RepsPerSession < 1 {
		return 0
	}
	done := (s.Repetition - 1) * 2
	if s.Leg == LegRight {
		done++
	}
	return float64(done) / float64(s.TotalHolds()) * 100
}

// FormatSeconds renders a seconds counter zero-padded to two digits.
func FormatSeconds(seconds int) string {
	return fmt.Sprintf("%02d", seconds)
}

// FormatSession renders the session counter, e.g. "Session 2/4".
func FormatSession(index, maxSessions int) string {
	return fmt.Sprintf("Session %d/%d", index, maxSessions)
}

// NextSessionIndex returns current+1 capped at maxSessions.
func NextSessionIndex(current, maxSessions int) int {
	return min(current+1, maxSessions)
}

// advance applies the expiry transition table and reports whether the session
// just completed.
func (s *State) advance(hold int) (completed bool) {
	switch {
	case s.SessionComplete:
		return false
	case s.Leg == LegLeft:
		s.Leg = LegRight
		s.SecondsRemaining = hold
	case s.Repetition < s.RepsPerSession:
		s.Repetition++
		s.Leg = LegLeft
		s.SecondsRemaining = hold
	default:
		s.Running = false
		s.SessionComplete = true
		s.SecondsRemaining = 0
		return true
	}
	return false
}
