package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "dbtsel",
		Usage: "Build dbt selectors.yml files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ResolveHome().Config(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Selectors file (default: output.path from config)",
			},
		},
		Commands: []*cli.Command{
			NewNewCommand(),
			NewAddCommand(),
			NewListCommand(),
			NewShowCommand(),
			NewRemoveCommand(),
			NewResetCommand(),
			NewValidateCommand(),
			NewDocsCommand(),
			NewServeCommand(),
			NewStatusCommand(),
			NewWatchCommand(),
			NewMCPServeCommand(),
		},
	}
}
