// Package ledger keeps per-day session completion counts and derives streaks
// from them.
package ledger

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// DateLayout is the calendar-day key format.
const DateLayout = time.DateOnly

// DefaultTarget is the number of sessions per day that meets the daily goal.
const DefaultTarget = 4

// DaySession is one calendar day's completion record.
type DaySession struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Target    int    `json:"target"`
}

// Met reports whether the day reached its target.
func (d DaySession) Met() bool { return d.Completed >= d.Target }

// DateKey returns the calendar-day key of t in t's location.
func DateKey(t time.Time) string { return t.Format(DateLayout) }

// FormatProgress renders "completed/target".
func FormatProgress(completed, target int) string {
	return fmt.Sprintf("%d/%d", completed, target)
}

// Ledger holds at most one DaySession per date, in arrival order.
type Ledger struct {
	mu       sync.RWMutex
	sessions []DaySession
	target   int
}

// New returns an empty ledger whose new days get target (DefaultTarget when < 1).
func New(target int) *Ledger {
	if target < 1 {
		target = DefaultTarget
	}
	return &Ledger{target: target}
}

// FromSessions builds a ledger from stored records. Records sharing a date are
// merged, keeping the position of the first and the values of the last.
// Counts are clamped to 0..target.
func FromSessions(sessions []DaySession, target int) *Ledger {
	l := New(target)
	l.sessions = merge(sessions, l.target)
	return l
}

func merge(in []DaySession, defaultTarget int) []DaySession {
	out := make([]DaySession, 0, len(in))
	index := make(map[string]int, len(in))
	for _, d := range in {
		if d.Target < 1 {
			d.Target = defaultTarget
		}
		d.Completed = max(0, min(d.Completed, d.Target))
		if i, ok := index[d.Date]; ok {
			out[i] = d
			continue
		}
		index[d.Date] = len(out)
		out = append(out, d)
	}
	return out
}

// Target returns the target applied to newly created days.
func (l *Ledger) Target() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.target
}

// SetTarget changes the target for days created from now on.
func (l *Ledger) SetTarget(target int) {
	if target < 1 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = target
}

// Sessions returns a copy of the records in arrival order.
func (l *Ledger) Sessions() []DaySession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.sessions)
}

func (l *Ledger) find(date string) int {
	return slices.IndexFunc(l.sessions, func(d DaySession) bool { return d.Date == date })
}

// RecordCompletion counts one finished session on date, capped at the day's
// target, and returns the updated record.
func (l *Ledger) RecordCompletion(date string) DaySession {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.find(date); i >= 0 {
		d := &l.sessions[i]
		d.Completed = min(d.Completed+1, d.Target)
		return *d
	}
	d := DaySession{Date: date, Completed: 1, Target: l.target}
	l.sessions = append(l.sessions, d)
	return d
}

// EnsureDay appends an empty record for date if none exists and reports
// whether it did.
func (l *Ledger) EnsureDay(date string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.find(date) >= 0 {
		return false
	}
	l.sessions = append(l.sessions, DaySession{Date: date, Target: l.target})
	return true
}

// DailyProgress returns the record for date, or (0, target) when absent.
func (l *Ledger) DailyProgress(date string) (completed, target int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.find(date); i >= 0 {
		return l.sessions[i].Completed, l.sessions[i].Target
	}
	return 0, l.target
}

// Clear drops every record and seeds an empty record for today.
func (l *Ledger) Clear(today string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = []DaySession{{Date: today, Target: l.target}}
}

// Streak returns the streak ending at ref. See Streak.
func (l *Ledger) Streak(ref string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Streak(l.sessions, ref)
}
