package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// NewShowCommand returns the show subcommand.
func NewShowCommand() *cli.Command {
	return &cli.Command{
		Name:   "show",
		Usage:  "Print the selectors document",
		Action: runShow,
	}
}

func runShow(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	return selectors.Encode(ws.out, ws.collection.Selectors(), ws.cfg.Output.Indent)
}
