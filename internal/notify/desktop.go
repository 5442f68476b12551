package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
)

const emitTimeout = 10 * time.Second

// DesktopGateway shows notifications through the platform notifier:
// osascript on macOS and notify-send elsewhere. With the prompt policy,
// permission is granted when the notifier binary is on PATH.
type DesktopGateway struct {
	*permissionState
	goos     string
	run      func(ctx context.Context, name string, args ...string) error
	lookPath func(file string) (string, error)
}

func NewDesktopGateway(policy config.PermissionPolicy) *DesktopGateway {
	g := &DesktopGateway{
		goos:     runtime.GOOS,
		run:      runCommand,
		lookPath: exec.LookPath,
	}
	g.permissionState = newPermissionState(policy, g.probe)
	return g
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput() // #nosec G204 - fixed notifier binaries
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

func (g *DesktopGateway) probe(context.Context) bool {
	name, _ := g.command("", "")
	_, err := g.lookPath(name)
	if err != nil {
		slog.Warn("Notifier not available", slog.String("binary", name), logfields.Error(err))
	}
	return err == nil
}

// command returns the notifier invocation for the current platform.
func (g *DesktopGateway) command(title, body string) (string, []string) {
	if g.goos == "darwin" {
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(body), strconv.Quote(title))
		return "osascript", []string{"-e", script}
	}
	return "notify-send", []string{"--app-name=calfstretch", title, body}
}

func (g *DesktopGateway) QueryPermission(context.Context) Permission { return g.query() }

func (g *DesktopGateway) RequestPermission(ctx context.Context) Permission { return g.request(ctx) }

func (g *DesktopGateway) Emit(ctx context.Context, title, body string) {
	ctx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()

	name, args := g.command(title, body)
	if err := g.run(ctx, name, args...); err != nil {
		slog.Warn("Failed to show notification", slog.String("title", title), logfields.Error(err))
		return
	}
	slog.Debug("Notification shown", slog.String("title", title))
}
