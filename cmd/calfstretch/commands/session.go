package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/events"
	"git.home.luguber.info/inful/calfstretch/internal/ledger"
	"git.home.luguber.info/inful/calfstretch/internal/routine"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

const sessionHelp = "Enter: start/pause  n: next session  r: reset  q: quit"

// SessionCmd implements the 'session' command.
type SessionCmd struct{}

func (s *SessionCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	trk, closeFn, err := openTracker(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer closeFn()

	return runSession(ctx, trk, cfg.Routine.MaxSessions, g.in(), g.out())
}

// runSession drives trk from line commands on in and prints every clock
// update to out. It pauses the clock on exit.
func runSession(ctx context.Context, trk *tracker.Tracker, maxSessions int, in io.Reader, out io.Writer) error {
	changes, unsubscribeChanges := events.Subscribe[events.RoutineChanged](trk.Bus(), 16)
	defer unsubscribeChanges()
	completions, unsubscribeCompletions := events.Subscribe[events.SessionCompleted](trk.Bus(), 4)
	defer unsubscribeCompletions()
	defer trk.Pause()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	_, _ = fmt.Fprintln(out, sessionHelp)
	printRoutine(out, trk.Routine(), trk.SessionIndex(), maxSessions)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line {
			case "":
				trk.Toggle()
			case "n":
				trk.StartNextSession()
			case "r":
				trk.Reset()
			case "q":
				return nil
			default:
				_, _ = fmt.Fprintf(out, "unknown command %q (%s)\n", line, sessionHelp)
			}
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			printRoutine(out, c.Snapshot, c.SessionIndex, maxSessions)
		case e, ok := <-completions:
			if !ok {
				completions = nil
				continue
			}
			_, _ = fmt.Fprintf(out, "Session complete! Today: %s\n", ledger.FormatProgress(e.Completed, e.Target))
		}
	}
}

func printRoutine(out io.Writer, s routine.State, sessionIndex, maxSessions int) {
	status := "paused"
	switch {
	case s.SessionComplete:
		status = "complete"
	case s.Running:
		status = "running"
	}
	_, _ = fmt.Fprintf(out, "%s  %-5s rep %d/%d  %ss  %3.0f%%  %s\n",
		routine.FormatSession(sessionIndex, maxSessions),
		s.Leg, s.Repetition, s.RepsPerSession,
		routine.FormatSeconds(s.SecondsRemaining),
		s.Percent(), status)
}
