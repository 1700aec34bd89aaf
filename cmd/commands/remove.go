package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

// NewRemoveCommand returns the remove subcommand.
func NewRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove the selector at an index",
		ArgsUsage: "<index>",
		Action:    runRemove,
	}
}

func runRemove(_ context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return errors.New("an index is required (see list)")
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("index %q: not a number", arg)
	}

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	sel, err := ws.collection.Remove(index)
	if err != nil {
		return err
	}
	if err := ws.save(); err != nil {
		return err
	}
	ws.printf("Removed selector %q.\n", sel.Name)
	return nil
}
