package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	JSON bool `name:"json" help:"Print the history as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	return withTracker(root, func(_ context.Context, trk *tracker.Tracker) error {
		history := trk.History()
		out := g.out()
		if h.JSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(history)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DATE\tCOMPLETED\tTARGET\tMET")
		for _, day := range history {
			met := "no"
			if day.Met() {
				met = "yes"
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", day.Date, day.Completed, day.Target, met)
		}
		_ = w.Flush()
		_, _ = fmt.Fprintf(out, "Streak: %d day(s)\n", trk.Streak())
		return nil
	})
}

// ClearCmd implements the 'clear' command.
type ClearCmd struct {
	Yes bool `short:"y" help:"Confirm clearing all history"`
}

func (c *ClearCmd) Run(g *Global, root *CLI) error {
	if !c.Yes {
		return ferrors.ValidationError("refusing to clear history without --yes").Build()
	}
	return withTracker(root, func(ctx context.Context, trk *tracker.Tracker) error {
		trk.ClearHistory(ctx)
		_, _ = fmt.Fprintln(g.out(), "History cleared")
		return nil
	})
}
