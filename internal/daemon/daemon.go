package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/events"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/metrics"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

const eventLogBuffer = 64

// Daemon hosts the tracker with its day rollover job, config watcher and
// admin HTTP server.
type Daemon struct {
	config         atomic.Pointer[config.Config]
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time
	mu             sync.RWMutex
	workers        sync.WaitGroup

	clock    clockwork.Clock
	location *time.Location

	// Injected or opened at Start.
	store   kvstore.Store
	gateway notify.Gateway

	trk           atomic.Pointer[tracker.Tracker]
	bus           *events.Bus
	scheduler     *Scheduler
	configWatcher *ConfigWatcher
	registry      *prom.Registry
	adminServer   *http.Server
	adminAddr     string
	ownsStore     bool
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock sets the clock the tracker and the rollover job run on.
func WithClock(c clockwork.Clock) Option { return func(d *Daemon) { d.clock = c } }

// WithLocation sets the time zone of the rollover job.
func WithLocation(loc *time.Location) Option { return func(d *Daemon) { d.location = loc } }

// WithStore uses s instead of opening the configured backend. The daemon
// does not close an injected store.
func WithStore(s kvstore.Store) Option { return func(d *Daemon) { d.store = s } }

// WithGateway uses g instead of the configured notification backend.
func WithGateway(g notify.Gateway) Option { return func(d *Daemon) { d.gateway = g } }

// NewDaemon creates a new daemon instance. A non-empty configFilePath enables
// the config watcher.
func NewDaemon(cfg *config.Config, configFilePath string, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("configuration is required").Build()
	}
	d := &Daemon{
		configFilePath: configFilePath,
		clock:          clockwork.NewRealClock(),
		location:       time.Local,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.config.Store(cfg)
	d.status.Store(StatusStopped)
	return d, nil
}

// Start brings up every component and returns once they are running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() != StatusStopped {
		return ferrors.DaemonError("daemon is not in stopped state").WithContext("status", string(d.GetStatus())).Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()
	slog.Info("Starting calfstretch daemon")

	if err := d.startLocked(ctx); err != nil {
		d.status.Store(StatusError)
		d.teardownLocked(ctx)
		return err
	}

	d.status.Store(StatusRunning)
	cfg := d.config.Load()
	slog.Info("calfstretch daemon started",
		logfields.Backend(string(cfg.Storage.Backend)),
		slog.String("admin_addr", d.adminAddr),
		slog.String("rollover_at", cfg.Daemon.RolloverAt))
	return nil
}

func (d *Daemon) startLocked(ctx context.Context) error {
	cfg := d.config.Load()

	var storeErr error
	if d.store == nil {
		d.store, storeErr = kvstore.OpenOrMemory(ctx, cfg, d.clock)
		d.ownsStore = true
	}
	if d.gateway == nil {
		d.gateway = notify.New(cfg.Notifications)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		d.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	// Subscribe before the tracker exists so startup advisories are logged.
	d.bus = events.NewBus()
	feed, _ := events.Subscribe[events.Event](d.bus, eventLogBuffer)
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		logEvents(feed)
	}()

	trk, err := tracker.New(ctx, tracker.Options{
		Config:   cfg,
		Store:    d.store,
		Gateway:  d.gateway,
		Bus:      d.bus,
		Clock:    d.clock,
		Recorder: recorder,
		StoreErr: storeErr,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	d.trk.Store(trk)

	sched, err := NewScheduler(d.clock, d.location)
	if err != nil {
		return err
	}
	hour, minute, second := cfg.RolloverTime()
	if _, err := sched.ScheduleDailyRollover(hour, minute, second, trk.Rollover); err != nil {
		return err
	}
	sched.Start(ctx)
	d.scheduler = sched

	if d.configFilePath != "" {
		watcher, err := NewConfigWatcher(d.configFilePath, d, cfg.ReloadDebounce())
		if err != nil {
			slog.Error("Failed to create config watcher", logfields.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
			_ = watcher.Stop(ctx)
		} else {
			d.configWatcher = watcher
		}
	}

	if cfg.Daemon.AdminAddr != "" {
		if err := d.startAdminServer(cfg.Daemon.AdminAddr); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) startAdminServer(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on admin address %s: %w", addr, err)
	}
	d.adminAddr = ln.Addr().String()
	d.adminServer = &http.Server{
		Handler:           d.adminHandler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		if err := d.adminServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server failed", logfields.Error(err))
		}
	}()
	slog.Info("Admin server listening", slog.String("addr", d.adminAddr))
	return nil
}

// Stop gracefully shuts down the daemon: HTTP first, then the watcher, the
// rollover job, every timer, the bus and finally the store.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.GetStatus()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping calfstretch daemon")

	d.teardownLocked(ctx)

	d.status.Store(StatusStopped)
	slog.Info("calfstretch daemon stopped", slog.Duration("uptime", d.clock.Since(d.startTime)))
	return nil
}

func (d *Daemon) teardownLocked(ctx context.Context) {
	if d.adminServer != nil {
		if err := d.adminServer.Shutdown(ctx); err != nil {
			slog.Error("Failed to stop admin server", logfields.Error(err))
		}
		d.adminServer = nil
	}
	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
		d.configWatcher = nil
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(ctx); err != nil {
			slog.Error("Failed to stop scheduler", logfields.Error(err))
		}
		d.scheduler = nil
	}
	if trk := d.trk.Swap(nil); trk != nil {
		trk.Close()
	}
	if d.bus != nil {
		d.bus.Close()
	}
	d.workers.Wait()

	if d.ownsStore && d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Error("Failed to close store", logfields.Error(err))
		}
		d.store = nil
		d.ownsStore = false
	}
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config { return d.config.Load() }

// Tracker returns the running tracker, or nil while stopped.
func (d *Daemon) Tracker() *tracker.Tracker { return d.trk.Load() }

// AdminAddr returns the address the admin server listens on.
func (d *Daemon) AdminAddr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.adminAddr
}

// ReloadConfig applies newConfig to the running tracker. The previous
// configuration stays active when the tracker rejects it.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	slog.Info("Reloading daemon configuration")
	if trk := d.trk.Load(); trk != nil {
		if err := trk.ApplyConfig(ctx, newConfig); err != nil {
			return fmt.Errorf("failed to apply configuration to tracker: %w", err)
		}
	}
	d.config.Store(newConfig)
	return nil
}

// logEvents writes every published event to the log until the bus closes.
func logEvents(feed <-chan events.Event) {
	for evt := range feed {
		switch e := evt.(type) {
		case events.SessionCompleted:
			slog.Info("Session completed",
				logfields.SessionID(e.SessionID),
				logfields.Date(e.Date),
				slog.String("progress", fmt.Sprintf("%d/%d", e.Completed, e.Target)))
		case events.ReminderFired:
			slog.Info("Reminder fired",
				logfields.ReminderID(e.ReminderID),
				logfields.Label(e.Label),
				logfields.Deadline(e.Next))
		case events.RemindersChanged:
			slog.Debug("Reminders rearmed", slog.Int("armed", e.Armed))
		case events.LedgerChanged:
			slog.Debug("History changed", slog.Int("days", len(e.Sessions)), slog.Int("streak", e.Streak))
		case events.Advisory:
			slog.Warn("Advisory raised", slog.String("kind", string(e.Kind)), slog.String("message", e.Message))
		case events.RoutineChanged:
			// Emitted every second while running.
		default:
			slog.Debug("Event", slog.String("event", evt.EventName()))
		}
	}
}
