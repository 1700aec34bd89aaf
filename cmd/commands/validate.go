package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/export"
)

// NewValidateCommand returns the validate subcommand.
func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check selectors files below a directory",
		ArgsUsage: "[pattern...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "Directory to search",
				Value: ".",
			},
		},
		Action: runValidate,
	}
}

func runValidate(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd, cmd.Root().ErrWriter)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer

	files, err := export.Find(cmd.String("root"), cmd.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No selectors files found.")
		return nil
	}

	b := newBuilder(cfg)
	failed := 0
	for _, f := range files {
		sel, err := export.ReadFile(f, b)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", f, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d selectors)\n", f, len(sel))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(files))
	}
	return nil
}
