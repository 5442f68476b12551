package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/daemon"
)

const daemonStopTimeout = 30 * time.Second

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	AdminAddr string `help:"Admin HTTP listen address (overrides daemon.admin_addr)" placeholder:"HOST:PORT"`
	NoWatch   bool   `help:"Do not reload the configuration file when it changes"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if d.AdminAddr != "" {
		cfg.Daemon.AdminAddr = d.AdminAddr
	}
	configPath := root.Config
	if d.NoWatch {
		configPath = ""
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dmn, err := daemon.NewDaemon(cfg, configPath)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	return RunDaemon(ctx, dmn)
}

// RunDaemon starts d and blocks until ctx is done, then stops it.
func RunDaemon(ctx context.Context, d *daemon.Daemon) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	slog.Info("Daemon started, waiting for shutdown signal...")

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), daemonStopTimeout)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}
