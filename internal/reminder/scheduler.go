package reminder

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/metrics"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
)

// State is the scheduling state of one reminder.
type State string

const (
	StateDisabled State = "DISABLED"
	StateArmed    State = "ARMED"
	StateFiring   State = "FIRING"
)

// DefaultTitle is the notification title used when none is configured.
const DefaultTitle = "Calf Stretching Reminder"

// Fired describes one delivered reminder.
type Fired struct {
	Reminder Reminder
	FiredAt  time.Time
	Next     time.Time
}

// Pending is an armed reminder and its deadline.
type Pending struct {
	ID       int       `json:"id"`
	Label    string    `json:"label"`
	Deadline time.Time `json:"deadline"`
}

// scheduledFire pairs a reminder with its pending wakeup. It is only valid
// while gen matches the scheduler's generation.
type scheduledFire struct {
	reminder Reminder
	deadline time.Time
	timer    clockwork.Timer
	gen      uint64
}

// Scheduler owns the reminder set and one timer per armed reminder. Every
// rearm cancels all pending timers and bumps the generation, so a timer that
// already fired but has not yet taken the lock is discarded.
type Scheduler struct {
	// mutateMu serializes read-modify-rearm steps on the reminder set. It is
	// held across gateway calls; mu never is.
	mutateMu sync.Mutex

	mu        sync.Mutex
	reminders []Reminder
	pending   map[int]*scheduledFire
	firing    map[int]bool
	gen       uint64
	perm      notify.Permission

	ctx    context.Context
	cancel context.CancelFunc

	clock    clockwork.Clock
	gateway  notify.Gateway
	title    string
	onFire   func(Fired)
	recorder metrics.Recorder
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the clock deadlines and timers are computed on.
func WithClock(c clockwork.Clock) SchedulerOption { return func(s *Scheduler) { s.clock = c } }

// WithTitle sets the notification title.
func WithTitle(title string) SchedulerOption { return func(s *Scheduler) { s.title = title } }

// WithOnFire registers a callback run after each notification is emitted.
func WithOnFire(fn func(Fired)) SchedulerOption { return func(s *Scheduler) { s.onFire = fn } }

// WithRecorder sets the metrics recorder for fired and armed reminders.
func WithRecorder(r metrics.Recorder) SchedulerOption {
	return func(s *Scheduler) { s.recorder = r }
}

// NewScheduler returns a scheduler with an empty reminder set and nothing armed.
func NewScheduler(gateway notify.Gateway, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		pending: make(map[int]*scheduledFire),
		firing:  make(map[int]bool),
		perm:    notify.PermissionUnknown,
		gateway: gateway,
		title:   DefaultTitle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	s.recorder = metrics.OrNoop(s.recorder)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Reminders returns a copy of the reminder set.
func (s *Scheduler) Reminders() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reminders)
}

// Permission returns the permission observed at the last rearm.
func (s *Scheduler) Permission() notify.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

// Rearm replaces the reminder set, cancels every pending wakeup and, when
// notification permission is granted, arms each enabled reminder for its next
// deadline. It returns the permission it observed.
func (s *Scheduler) Rearm(ctx context.Context, reminders []Reminder) (notify.Permission, error) {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()
	return s.rearm(ctx, reminders)
}

// Refresh rearms the current reminder set, picking up a changed permission.
func (s *Scheduler) Refresh(ctx context.Context) (notify.Permission, error) {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()
	return s.rearm(ctx, s.Reminders())
}

func (s *Scheduler) rearm(ctx context.Context, reminders []Reminder) (notify.Permission, error) {
	if err := Validate(reminders); err != nil {
		return s.Permission(), err
	}
	perm := s.gateway.QueryPermission(ctx)

	s.mu.Lock()
	s.reminders = slices.Clone(reminders)
	s.perm = perm
	armed := s.rearmLocked()
	s.mu.Unlock()

	s.recorder.SetRemindersArmed(armed)
	slog.Debug("Reminders rearmed", slog.Int("armed", armed), logfields.Permission(string(perm)))
	return perm, nil
}

func (s *Scheduler) rearmLocked() int {
	s.cancelAllLocked()
	s.gen++
	if s.perm != notify.PermissionGranted || s.ctx.Err() != nil {
		return 0
	}
	now := s.clock.Now()
	for _, r := range s.reminders {
		if r.Enabled {
			s.armLocked(r, now)
		}
	}
	return len(s.pending)
}

func (s *Scheduler) cancelAllLocked() {
	for id, sf := range s.pending {
		sf.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) armLocked(r Reminder, now time.Time) {
	deadline := NextDeadline(r.Time, now)
	gen := s.gen
	id := r.ID
	sf := &scheduledFire{reminder: r, deadline: deadline, gen: gen}
	sf.timer = s.clock.AfterFunc(deadline.Sub(now), func() { s.fire(id, gen) })
	s.pending[id] = sf
	slog.Debug("Reminder armed", logfields.ReminderID(id), logfields.Label(r.Label), logfields.Deadline(deadline))
}

func (s *Scheduler) fire(id int, gen uint64) {
	s.mu.Lock()
	sf, ok := s.pending[id]
	if !ok || sf.gen != gen || s.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.firing[id] = true
	r := sf.reminder
	ctx := s.ctx
	s.mu.Unlock()

	firedAt := s.clock.Now()
	s.gateway.Emit(ctx, s.title, Message(r.Label))
	s.recorder.IncReminderFired(r.Label)

	s.mu.Lock()
	delete(s.firing, id)
	var next time.Time
	if s.gen == gen && ctx.Err() == nil {
		s.armLocked(r, s.clock.Now())
		next = s.pending[id].deadline
	}
	armed := len(s.pending)
	s.mu.Unlock()

	s.recorder.SetRemindersArmed(armed)
	slog.Info("Reminder fired", logfields.ReminderID(id), logfields.Label(r.Label), logfields.Deadline(next))
	if s.onFire != nil {
		s.onFire(Fired{Reminder: r, FiredAt: firedAt, Next: next})
	}
}

// Toggle flips a reminder's enabled flag and rearms. Enabling a reminder
// without a permission grant requests permission first. The returned
// permission is the one observed by the rearm.
func (s *Scheduler) Toggle(ctx context.Context, id int) (Reminder, notify.Permission, error) {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()

	s.mu.Lock()
	i := indexOf(s.reminders, id)
	if i < 0 {
		s.mu.Unlock()
		return Reminder{}, s.Permission(), unknownReminder(id)
	}
	set := slices.Clone(s.reminders)
	s.mu.Unlock()

	set[i].Enabled = !set[i].Enabled
	if set[i].Enabled && s.gateway.QueryPermission(ctx) != notify.PermissionGranted {
		perm := s.gateway.RequestPermission(ctx)
		slog.Info("Notification permission requested", logfields.ReminderID(id), logfields.Permission(string(perm)))
	}
	perm, err := s.rearm(ctx, set)
	return set[i], perm, err
}

// UpdateTime sets a reminder's time from "HH:MM" and rearms. Invalid input is
// rejected with a validation error and leaves the reminder unchanged.
func (s *Scheduler) UpdateTime(ctx context.Context, id int, raw string) (Reminder, error) {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		return Reminder{}, err
	}

	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()

	s.mu.Lock()
	i := indexOf(s.reminders, id)
	if i < 0 {
		s.mu.Unlock()
		return Reminder{}, unknownReminder(id)
	}
	set := slices.Clone(s.reminders)
	s.mu.Unlock()

	set[i].Time = t
	if _, err := s.rearm(ctx, set); err != nil {
		return Reminder{}, err
	}
	return set[i], nil
}

// States reports the scheduling state of every reminder. An enabled reminder
// that could not be armed is DISABLED.
func (s *Scheduler) States() map[int]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make(map[int]State, len(s.reminders))
	for _, r := range s.reminders {
		switch {
		case s.firing[r.ID]:
			states[r.ID] = StateFiring
		case s.pending[r.ID] != nil:
			states[r.ID] = StateArmed
		default:
			states[r.ID] = StateDisabled
		}
	}
	return states
}

// Pending lists armed reminders ordered by deadline.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pending, 0, len(s.pending))
	for id, sf := range s.pending {
		out = append(out, Pending{ID: id, Label: sf.reminder.Label, Deadline: sf.deadline})
	}
	slices.SortFunc(out, func(a, b Pending) int {
		if c := a.Deadline.Compare(b.Deadline); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return out
}

// Stop cancels every pending wakeup. The scheduler arms nothing afterwards.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	s.cancelAllLocked()
	s.gen++
	s.mu.Unlock()
	s.recorder.SetRemindersArmed(0)
}

func unknownReminder(id int) error {
	return ferrors.NewError(ferrors.CategoryNotFound, "unknown reminder").
		WithContext("id", id).
		Build()
}
