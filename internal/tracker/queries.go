package tracker

import (
	"cmp"
	"slices"
	"time"

	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/routine"
)

// Routine returns the session clock snapshot.
func (t *Tracker) Routine() routine.State { return t.routine.State() }

// SessionIndex returns the 1-based session counter.
func (t *Tracker) SessionIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionIndex
}

// History returns the day records in arrival order.
func (t *Tracker) History() []ledger.DaySession { return t.ledger.Sessions() }

// DailyProgress returns today's completed count and target.
func (t *Tracker) DailyProgress() (completed, target int) {
	return t.ledger.DailyProgress(t.today())
}

// Streak counts met days up to today. Today only extends the streak once its
// target is met; until then the streak ends yesterday.
func (t *Tracker) Streak() int {
	now := t.clock.Now()
	today := ledger.DateKey(now)
	if completed, target := t.ledger.DailyProgress(today); completed >= target {
		return t.ledger.Streak(today)
	}
	return t.ledger.Streak(ledger.DateKey(now.AddDate(0, 0, -1)))
}

// Reminders returns the reminder set.
func (t *Tracker) Reminders() []reminder.Reminder { return t.scheduler.Reminders() }

// ReminderStatus is a reminder with its scheduling state.
type ReminderStatus struct {
	reminder.Reminder
	State    reminder.State `json:"state"`
	Deadline *time.Time     `json:"deadline,omitempty"`
}

// ReminderStatuses returns every reminder with its state and pending deadline.
func (t *Tracker) ReminderStatuses() []ReminderStatus {
	states := t.scheduler.States()
	deadlines := make(map[int]time.Time)
	for _, p := range t.scheduler.Pending() {
		deadlines[p.ID] = p.Deadline
	}
	reminders := t.scheduler.Reminders()
	out := make([]ReminderStatus, 0, len(reminders))
	for _, r := range reminders {
		st := ReminderStatus{Reminder: r, State: states[r.ID]}
		if d, ok := deadlines[r.ID]; ok {
			st.Deadline = &d
		}
		out = append(out, st)
	}
	return out
}

// Permission returns the notification permission seen at the last rearm.
func (t *Tracker) Permission() notify.Permission { return t.scheduler.Permission() }

// Advisories returns the active advisories ordered by kind.
func (t *Tracker) Advisories() []events.Advisory {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]events.Advisory, 0, len(t.advisories))
	for _, a := range t.advisories {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b events.Advisory) int { return cmp.Compare(a.Kind, b.Kind) })
	return out
}

// Status is a JSON-friendly snapshot of the whole tracker.
type Status struct {
	Routine      routine.State       `json:"routine"`
	Session      string              `json:"session"`
	Percent      float64             `json:"percent"`
	Today        string              `json:"today"`
	Progress     string              `json:"progress"`
	Streak       int                 `json:"streak"`
	Permission   notify.Permission   `json:"permission"`
	Reminders    []ReminderStatus    `json:"reminders"`
	Advisories   []events.Advisory   `json:"advisories"`
	History      []ledger.DaySession `json:"history"`
	SessionIndex int                 `json:"session_index"`
	MaxSessions  int                 `json:"max_sessions"`
}

// Status assembles a Status.
func (t *Tracker) Status() Status {
	s := t.routine.State()
	index := t.SessionIndex()
	maxSessions := t.routine.Limits().MaxSessions
	completed, target := t.DailyProgress()
	return Status{
		Routine:      s,
		Session:      routine.FormatSession(index, maxSessions),
		Percent:      s.Percent(),
		Today:        t.today(),
		Progress:     ledger.FormatProgress(completed, target),
		Streak:       t.Streak(),
		Permission:   t.Permission(),
		Reminders:    t.ReminderStatuses(),
		Advisories:   t.Advisories(),
		History:      t.History(),
		SessionIndex: index,
		MaxSessions:  maxSessions,
	}
}
