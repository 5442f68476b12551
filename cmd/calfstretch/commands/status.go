package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

const remoteTimeout = 5 * time.Second

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Addr string `help:"Read the status from a running daemon's admin address" placeholder:"HOST:PORT"`
	JSON bool   `name:"json" help:"Print the status as JSON"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	var status tracker.Status
	if s.Addr != "" {
		remote, err := fetchStatus(context.Background(), s.Addr)
		if err != nil {
			return err
		}
		status = remote
	} else {
		err := withTracker(root, func(_ context.Context, trk *tracker.Tracker) error {
			status = trk.Status()
			return nil
		})
		if err != nil {
			return err
		}
	}

	if s.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	printStatus(g.out(), status)
	return nil
}

// fetchStatus reads /status from the daemon admin server at addr.
func fetchStatus(ctx context.Context, addr string) (tracker.Status, error) {
	var status tracker.Status
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(addr, "/")+"/status", nil)
	if err != nil {
		return status, ferrors.ValidationError("invalid daemon address").WithCause(err).WithContext("addr", addr).Build()
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status, ferrors.NetworkError("daemon is not reachable").WithCause(err).WithContext("addr", addr).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return status, ferrors.DaemonError("daemon returned an error").
			WithContext("addr", addr).
			WithContext("status", resp.StatusCode).
			Build()
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, ferrors.NetworkError("invalid status response").WithCause(err).Build()
	}
	return status, nil
}

func printStatus(out io.Writer, s tracker.Status) {
	_, _ = fmt.Fprintf(out, "Today %s: %s sessions, streak %d day(s)\n", s.Today, s.Progress, s.Streak)
	printRoutine(out, s.Routine, s.SessionIndex, s.MaxSessions)
	_, _ = fmt.Fprintf(out, "Notifications: %s\n", s.Permission)

	_, _ = fmt.Fprintln(out, "Reminders:")
	printReminders(out, s.Reminders)

	if len(s.Advisories) > 0 {
		_, _ = fmt.Fprintln(out, "Warnings:")
		for _, a := range s.Advisories {
			_, _ = fmt.Fprintf(out, "  - %s\n", a.Message)
		}
	}
}

func printReminders(out io.Writer, reminders []tracker.ReminderStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  ID\tLABEL\tTIME\tENABLED\tSTATE\tNEXT")
	for _, r := range reminders {
		next := "-"
		if r.Deadline != nil {
			next = r.Deadline.Local().Format("2006-01-02 15:04")
		}
		enabled := "off"
		if r.Enabled {
			enabled = "on"
		}
		_, _ = fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Label, r.Time, enabled, r.State, next)
	}
	_ = w.Flush()
}
