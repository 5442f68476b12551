// Package tracker composes the session clock, the history ledger and the
// reminder scheduler into one stateful core. It persists every mutation,
// turns failures into advisories and publishes snapshots on the event bus.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/metrics"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/routine"
)

const storageTimeout = 5 * time.Second

// Options configures a Tracker. Store and Gateway are required.
type Options struct {
	Config   *config.Config
	Store    kvstore.Store
	Gateway  notify.Gateway
	Bus      *events.Bus
	Clock    clockwork.Clock
	Recorder metrics.Recorder
	// StoreErr is the error that forced Store to an in-memory fallback. While
	// set, the storage_degraded advisory stays raised.
	StoreErr error
}

// Tracker is safe for concurrent use. Its own lock is never held while calling
// into the clock or the scheduler, whose callbacks re-enter the tracker.
type Tracker struct {
	mu           sync.Mutex
	sessionIndex int
	sessionID    string
	advisories   map[events.AdvisoryKind]events.Advisory

	// volatile is set when the configured store could not be opened.
	volatile bool

	// persistMu orders snapshot-and-save so an older snapshot never
	// overwrites a newer one.
	persistMu sync.Mutex

	routine   *routine.Clock
	ledger    *ledger.Ledger
	scheduler *reminder.Scheduler

	store    kvstore.Store
	gateway  notify.Gateway
	bus      *events.Bus
	clock    clockwork.Clock
	recorder metrics.Recorder
}

// New loads history and reminders, seeds today's record and arms reminders.
// Storage failures fall back to in-memory defaults and raise an advisory.
func New(ctx context.Context, opts Options) (*Tracker, error) {
	if opts.Store == nil || opts.Gateway == nil {
		return nil, ferrors.InternalError("tracker requires a store and a notification gateway").Build()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	t := &Tracker{
		advisories: make(map[events.AdvisoryKind]events.Advisory),
		store:      opts.Store,
		gateway:    opts.Gateway,
		bus:        opts.Bus,
		clock:      opts.Clock,
		recorder:   metrics.OrNoop(opts.Recorder),
		volatile:   opts.StoreErr != nil,
	}
	if t.bus == nil {
		t.bus = events.NewBus()
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}

	clock, err := routine.NewClock(limitsFrom(cfg),
		routine.WithClock(t.clock),
		routine.WithRecorder(t.recorder),
		routine.WithOnChange(t.onRoutineChange),
		routine.WithOnComplete(t.onSessionComplete),
	)
	if err != nil {
		return nil, err
	}
	t.routine = clock
	if t.volatile {
		t.storageFailed("open", "", opts.StoreErr)
	}

	sessions, loaded := t.loadSessions(ctx)
	t.ledger = ledger.FromSessions(sessions, cfg.Routine.DailyTarget)
	// An unreadable history is not overwritten by the seeded day.
	if t.ledger.EnsureDay(t.today()) && loaded {
		t.saveLedger(ctx)
	}

	t.scheduler = reminder.NewScheduler(t.gateway,
		reminder.WithClock(t.clock),
		reminder.WithTitle(cfg.Notifications.Title),
		reminder.WithRecorder(t.recorder),
		reminder.WithOnFire(t.onReminderFired),
	)
	reminders, fresh := t.loadReminders(ctx)
	perm, err := t.scheduler.Rearm(ctx, reminders)
	if err != nil {
		return nil, err
	}
	if fresh {
		t.saveReminders(ctx)
	}
	t.updatePermissionAdvisory(perm)

	completed, _ := t.ledger.DailyProgress(t.today())
	t.sessionIndex = min(completed+1, cfg.Routine.MaxSessions)
	t.recorder.SetStreak(t.Streak())

	slog.Info("Tracker ready",
		logfields.Session(t.sessionIndex),
		slog.Int("days", len(t.ledger.Sessions())),
		logfields.Permission(string(perm)))
	return t, nil
}

func limitsFrom(cfg *config.Config) routine.Limits {
	return routine.Limits{
		HoldSeconds:    cfg.Routine.HoldSeconds,
		RepsPerSession: cfg.Routine.RepsPerSession,
		MaxSessions:    cfg.Routine.MaxSessions,
	}
}

func (t *Tracker) loadSessions(ctx context.Context) ([]ledger.DaySession, bool) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	sessions, err := ledger.Load(ctx, t.store)
	if err != nil {
		t.storageFailed("load", ledger.StorageKey, err)
		return nil, false
	}
	return sessions, true
}

// loadReminders reports fresh when no set was stored and the defaults should
// be written.
func (t *Tracker) loadReminders(ctx context.Context) (reminders []reminder.Reminder, fresh bool) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	reminders, found, err := reminder.Load(ctx, t.store)
	if err != nil {
		t.storageFailed("load", reminder.StorageKey, err)
		return reminder.Defaults(), false
	}
	if !found {
		return reminder.Defaults(), true
	}
	return reminders, false
}

// Bus returns the bus snapshots and advisories are published on.
func (t *Tracker) Bus() *events.Bus { return t.bus }

// Close retires the tick source and every reminder timer.
func (t *Tracker) Close() {
	t.routine.Close()
	t.scheduler.Stop()
}

func (t *Tracker) today() string { return ledger.DateKey(t.clock.Now()) }
