package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

// NewResetCommand returns the reset subcommand.
func NewResetCommand() *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Remove every selector from the selectors file",
		Action: runReset,
	}
}

func runReset(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	n := ws.collection.Len()
	ws.collection.Clear()
	if err := ws.save(); err != nil {
		return err
	}
	ws.printf("Removed %d selector(s) from %s.\n", n, ws.path)
	return nil
}
