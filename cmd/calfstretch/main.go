package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/calfstretch/cmd/calfstretch/commands"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("calfstretch"),
		kong.Description("Guided calf stretching sessions with daily reminders and streak tracking."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout, In: os.Stdin}
	err := parser.Run(global, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
