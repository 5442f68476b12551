package tracker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/routine"
)

// Start begins or resumes the current hold.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.sessionID == "" {
		t.sessionID = uuid.NewString()
		slog.Debug("Session started", logfields.SessionID(t.sessionID), logfields.Session(t.sessionIndex))
	}
	t.mu.Unlock()
	t.routine.Start()
}

// Pause halts the countdown.
func (t *Tracker) Pause() { t.routine.Pause() }

// Toggle starts a paused session or pauses a running one.
func (t *Tracker) Toggle() {
	if t.routine.State().Running {
		t.Pause()
		return
	}
	t.Start()
}

// Reset restarts the current session from its first hold.
func (t *Tracker) Reset() {
	t.clearSessionID()
	t.routine.Reset()
}

// StartNextSession resets the clock and advances the session counter,
// capped at the configured maximum. It returns the new index.
func (t *Tracker) StartNextSession() int {
	t.mu.Lock()
	current := t.sessionIndex
	t.sessionID = ""
	t.mu.Unlock()

	next := t.routine.StartNextSession(current)

	t.mu.Lock()
	t.sessionIndex = next
	t.mu.Unlock()
	t.publish(events.RoutineChanged{Snapshot: t.routine.State(), SessionIndex: next})
	return next
}

func (t *Tracker) clearSessionID() {
	t.mu.Lock()
	t.sessionID = ""
	t.mu.Unlock()
}

// ToggleReminder flips a reminder, persists the set and rearms.
func (t *Tracker) ToggleReminder(ctx context.Context, id int) (reminder.Reminder, error) {
	r, perm, err := t.scheduler.Toggle(ctx, id)
	if err != nil {
		return reminder.Reminder{}, err
	}
	t.updatePermissionAdvisory(perm)
	t.remindersChanged(ctx)
	return r, nil
}

// UpdateReminderTime sets a reminder's time from "HH:MM". Invalid input keeps
// the prior time, raises an advisory and returns a validation error.
func (t *Tracker) UpdateReminderTime(ctx context.Context, id int, raw string) (reminder.Reminder, error) {
	r, err := t.scheduler.UpdateTime(ctx, id, raw)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryValidation) {
			t.advise(events.AdvisoryInvalidTime, "Invalid reminder time "+raw+": use HH:MM")
		}
		return reminder.Reminder{}, err
	}
	t.clearAdvisory(events.AdvisoryInvalidTime)
	t.remindersChanged(ctx)
	return r, nil
}

func (t *Tracker) remindersChanged(ctx context.Context) {
	reminders := t.saveReminders(ctx)
	t.publish(events.RemindersChanged{Reminders: reminders, Armed: len(t.scheduler.Pending())})
}

// ClearHistory drops all history and seeds an empty record for today.
func (t *Tracker) ClearHistory(ctx context.Context) {
	t.ledger.Clear(t.today())
	t.mu.Lock()
	t.sessionIndex = 1
	t.mu.Unlock()
	slog.Info("History cleared")
	t.ledgerChanged(ctx)
}

// Rollover seeds the record for the current day. It is run shortly after
// midnight; a new day also restarts the session counter.
func (t *Tracker) Rollover(ctx context.Context) {
	today := t.today()
	if !t.ledger.EnsureDay(today) {
		return
	}
	completed, _ := t.ledger.DailyProgress(today)
	if !t.routine.State().Running {
		maxSessions := t.routine.Limits().MaxSessions
		t.mu.Lock()
		t.sessionIndex = min(completed+1, maxSessions)
		t.mu.Unlock()
	}
	slog.Info("Day rolled over", logfields.Date(today))
	t.ledgerChanged(ctx)
}

// ApplyConfig applies a reloaded configuration: routine limits from the next
// session on, the daily target for new days, the notification permission
// policy, and a rearm of the reminder set.
func (t *Tracker) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if err := t.routine.SetLimits(limitsFrom(cfg)); err != nil {
		return err
	}
	t.ledger.SetTarget(cfg.Routine.DailyTarget)
	if ps, ok := t.gateway.(notify.PolicySetter); ok {
		ps.SetPolicy(cfg.Notifications.Permission)
	}
	perm, err := t.scheduler.Refresh(ctx)
	if err != nil {
		return err
	}
	t.updatePermissionAdvisory(perm)
	t.publish(events.RemindersChanged{Reminders: t.scheduler.Reminders(), Armed: len(t.scheduler.Pending())})
	return nil
}

func (t *Tracker) onRoutineChange(s routine.State) {
	t.mu.Lock()
	index := t.sessionIndex
	t.mu.Unlock()
	t.publish(events.RoutineChanged{Snapshot: s, SessionIndex: index})
}

func (t *Tracker) onSessionComplete(routine.State) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	today := t.today()
	day := t.ledger.RecordCompletion(today)

	t.mu.Lock()
	sessionID := t.sessionID
	t.sessionID = ""
	t.mu.Unlock()

	slog.Info("Session recorded",
		logfields.SessionID(sessionID),
		logfields.Date(today),
		slog.String("progress", ledger.FormatProgress(day.Completed, day.Target)))
	t.publish(events.SessionCompleted{SessionID: sessionID, Date: today, Completed: day.Completed, Target: day.Target})
	t.ledgerChanged(ctx)
}

func (t *Tracker) onReminderFired(f reminder.Fired) {
	t.publish(events.ReminderFired{
		ReminderID: f.Reminder.ID,
		Label:      f.Reminder.Label,
		FiredAt:    f.FiredAt,
		Next:       f.Next,
	})
}

func (t *Tracker) ledgerChanged(ctx context.Context) {
	t.saveLedger(ctx)
	streak := t.Streak()
	t.recorder.SetStreak(streak)
	t.publish(events.LedgerChanged{Sessions: t.ledger.Sessions(), Streak: streak})
}
