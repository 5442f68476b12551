package tracker

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
)

func (t *Tracker) saveLedger(ctx context.Context) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := t.ledger.Save(ctx, t.store); err != nil {
		t.storageFailed("save", ledger.StorageKey, err)
		return
	}
	t.storageRecovered()
}

// saveReminders persists the scheduler's current set and returns the
// snapshot it wrote.
func (t *Tracker) saveReminders(ctx context.Context) []reminder.Reminder {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	reminders := t.scheduler.Reminders()
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := reminder.Save(ctx, t.store, reminders); err != nil {
		t.storageFailed("save", reminder.StorageKey, err)
		return reminders
	}
	t.storageRecovered()
	return reminders
}

func (t *Tracker) storageFailed(op, key string, err error) {
	t.recorder.IncStorageFailure(op)
	slog.Warn("Storage unavailable, continuing in memory", slog.String("op", op), logfields.Key(key), logfields.Error(err))
	t.advise(events.AdvisoryStorageDegraded, "Progress cannot be saved right now; changes are kept in memory")
}

// storageRecovered clears storage_degraded after a successful write, unless
// the tracker runs on the in-memory fallback.
func (t *Tracker) storageRecovered() {
	if t.volatile {
		return
	}
	t.clearAdvisory(events.AdvisoryStorageDegraded)
}

func (t *Tracker) updatePermissionAdvisory(perm notify.Permission) {
	switch perm {
	case notify.PermissionGranted:
		t.clearAdvisory(events.AdvisoryPermissionDenied)
		t.clearAdvisory(events.AdvisoryPermissionUnknown)
	case notify.PermissionDenied:
		t.clearAdvisory(events.AdvisoryPermissionUnknown)
		t.advise(events.AdvisoryPermissionDenied, "Notifications are blocked; reminders will not be shown")
	default:
		t.clearAdvisory(events.AdvisoryPermissionDenied)
		t.advise(events.AdvisoryPermissionUnknown, "Notification permission not granted yet; enable a reminder to request it")
	}
}

func (t *Tracker) advise(kind events.AdvisoryKind, message string) {
	a := events.Advisory{Kind: kind, Message: message, At: t.clock.Now()}
	t.mu.Lock()
	_, existed := t.advisories[kind]
	t.advisories[kind] = a
	t.mu.Unlock()
	if !existed {
		slog.Warn("Advisory raised", slog.String("kind", string(kind)), slog.String("message", message))
	}
	t.publish(a)
}

func (t *Tracker) clearAdvisory(kind events.AdvisoryKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.advisories, kind)
}

// publish hands evt to subscribers that have room; timer goroutines never
// wait on a slow observer.
func (t *Tracker) publish(evt events.Event) {
	if _, err := t.bus.Offer(evt); err != nil {
		slog.Debug("Event not published", slog.String("event", evt.EventName()), logfields.Error(err))
	}
}
