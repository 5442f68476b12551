package events

import (
	"time"

	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/routine"
)

// Event is implemented by every event the tracker publishes.
type Event interface {
	EventName() string
}

// RoutineChanged carries a new session clock snapshot.
type RoutineChanged struct {
	Snapshot     routine.State
	SessionIndex int
}

// SessionCompleted is published once per finished session after it was recorded.
type SessionCompleted struct {
	SessionID string
	Date      string
	Completed int
	Target    int
}

// LedgerChanged carries the history after a mutation.
type LedgerChanged struct {
	Sessions []ledger.DaySession
	Streak   int
}

// RemindersChanged carries the reminder set after a rearm.
type RemindersChanged struct {
	Reminders []reminder.Reminder
	Armed     int
}

// ReminderFired is published after a reminder notification was emitted.
type ReminderFired struct {
	ReminderID int
	Label      string
	FiredAt    time.Time
	Next       time.Time
}

// AdvisoryKind classifies degraded-state warnings shown to the user.
type AdvisoryKind string

const (
	AdvisoryStorageDegraded   AdvisoryKind = "storage_degraded"
	AdvisoryPermissionDenied  AdvisoryKind = "permission_denied"
	AdvisoryPermissionUnknown AdvisoryKind = "permission_unknown"
	AdvisoryInvalidTime       AdvisoryKind = "invalid_time"
)

// Advisory is a non-fatal warning for the display layer.
type Advisory struct {
	Kind    AdvisoryKind `json:"kind"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

func (RoutineChanged) EventName() string   { return "routine_changed" }
func (SessionCompleted) EventName() string { return "session_completed" }
func (LedgerChanged) EventName() string    { return "ledger_changed" }
func (RemindersChanged) EventName() string { return "reminders_changed" }
func (ReminderFired) EventName() string    { return "reminder_fired" }
func (Advisory) EventName() string         { return "advisory" }
