package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

// Global carries the process-wide handles subcommands write to.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
	In     io.Reader
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) in() io.Reader {
	if g == nil || g.In == nil {
		return os.Stdin
	}
	return g.In
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"calfstretch.yaml" env:"CALFSTRETCH_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
	Daemon    DaemonCmd    `cmd:"" help:"Run reminders, day rollover and the admin HTTP server"`
	Session   SessionCmd   `cmd:"" help:"Run an interactive stretching session in the terminal"`
	Status    StatusCmd    `cmd:"" help:"Show today's progress, streak and reminders"`
	History   HistoryCmd   `cmd:"" help:"List completed sessions per day"`
	Reminders RemindersCmd `cmd:"" help:"List and edit reminders"`
	Clear     ClearCmd     `cmd:"" help:"Clear the session history"`
}

// AfterApply runs after flag parsing; setup logging once. The configured
// level and format apply when the config file loads; --verbose wins.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	format := config.LogFormatText
	if cfg, err := config.Load(c.Config); err == nil {
		level = slogLevel(cfg.Monitoring.Logging.Level)
		format = cfg.Monitoring.Logging.Format
	}
	if c.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openTracker opens the configured store and notification backend and builds
// a tracker on clock. The returned func closes both.
func openTracker(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*tracker.Tracker, func(), error) {
	store, storeErr := kvstore.OpenOrMemory(ctx, cfg, clock)
	trk, err := tracker.New(ctx, tracker.Options{
		Config:   cfg,
		Store:    store,
		Gateway:  notify.New(cfg.Notifications),
		Clock:    clock,
		StoreErr: storeErr,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	closeFn := func() {
		trk.Close()
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close store", logfields.Error(err))
		}
	}
	return trk, closeFn, nil
}
