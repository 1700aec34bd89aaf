package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/dbtsel/internal/docs"
)

// NewDocsCommand returns the docs subcommand.
func NewDocsCommand() *cli.Command {
	return &cli.Command{
		Name:  "docs",
		Usage: "Show the dbt selector reference",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "topic",
				UsageText: "Topic to show (empty = all)",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List topics",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print markdown without styling",
			},
		},
		Action: runDocs,
	}
}

func runDocs(_ context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	if cmd.Bool("list") {
		for _, t := range docs.Topics() {
			fmt.Fprintf(out, "%-12s %s\n", t.Name, t.Title)
		}
		return nil
	}

	topic := cmd.StringArg("topic")
	if cmd.Bool("raw") || !isTerminal(out) {
		md, err := docs.Markdown(topic)
		if err != nil {
			return err
		}
		fmt.Fprint(out, md)
		return nil
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	rendered, err := docs.Render(topic, width)
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}
