package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/calfstretch/internal/config"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

// RemindersCmd groups the reminder subcommands.
type RemindersCmd struct {
	List   RemindersListCmd   `cmd:"" default:"1" help:"List reminders with their next deadline"`
	Toggle RemindersToggleCmd `cmd:"" help:"Enable or disable a reminder"`
	Set    RemindersSetCmd    `cmd:"" help:"Change a reminder's time of day"`
}

// RemindersListCmd implements 'reminders list'.
type RemindersListCmd struct{}

func (l *RemindersListCmd) Run(g *Global, root *CLI) error {
	return withTracker(root, func(_ context.Context, trk *tracker.Tracker) error {
		printReminders(g.out(), trk.ReminderStatuses())
		return nil
	})
}

// RemindersToggleCmd implements 'reminders toggle'.
type RemindersToggleCmd struct {
	ID int `arg:"" help:"Reminder ID"`
}

func (t *RemindersToggleCmd) Run(g *Global, root *CLI) error {
	return withTracker(root, func(ctx context.Context, trk *tracker.Tracker) error {
		r, err := trk.ToggleReminder(ctx, t.ID)
		if err != nil {
			return err
		}
		state := "disabled"
		if r.Enabled {
			state = "enabled"
		}
		_, _ = fmt.Fprintf(g.out(), "Reminder %d (%s) %s\n", r.ID, r.Label, state)
		printPermissionNote(g.out(), r, trk.Permission())
		return nil
	})
}

// RemindersSetCmd implements 'reminders set'.
type RemindersSetCmd struct {
	ID   int    `arg:"" help:"Reminder ID"`
	Time string `arg:"" help:"Time of day as HH:MM (24h)"`
}

func (s *RemindersSetCmd) Run(g *Global, root *CLI) error {
	return withTracker(root, func(ctx context.Context, trk *tracker.Tracker) error {
		r, err := trk.UpdateReminderTime(ctx, s.ID, s.Time)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(g.out(), "Reminder %d (%s) set to %s\n", r.ID, r.Label, r.Time)
		return nil
	})
}

func printPermissionNote(out io.Writer, r reminder.Reminder, perm notify.Permission) {
	if r.Enabled && perm != notify.PermissionGranted {
		_, _ = fmt.Fprintf(out, "Notifications are %s: the reminder is saved but will not fire\n", perm)
	}
}

func withTracker(root *CLI, fn func(context.Context, *tracker.Tracker) error) error {
	ctx := context.Background()
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	trk, closeFn, err := openTracker(ctx, cfg, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, trk)
}
