package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// NewListCommand returns the list subcommand.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List the selectors in the selectors file",
		Action: runList,
	}
}

func runList(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	sel := ws.collection.Selectors()
	if len(sel) == 0 {
		ws.printf("No selectors in %s.\n", ws.path)
		return nil
	}

	tw := tabwriter.NewWriter(ws.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tMODE\tDEFAULT\tDESCRIPTION")
	for i, s := range sel {
		def := ""
		if s.Default {
			def = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, s.Name, s.Definition.Mode(), def, s.Description)
	}
	return tw.Flush()
}
