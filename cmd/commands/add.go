package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// NewAddCommand returns the add subcommand.
func NewAddCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Append a selector to the selectors file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Selector name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Selector description",
			},
			&cli.BoolFlag{
				Name:  "default",
				Usage: "Mark as the default selector",
			},
			&cli.StringFlag{
				Name:  "inline",
				Usage: "CLI-style definition, e.g. 'tag:nightly'",
			},
			&cli.StringFlag{
				Name:  "kv",
				Usage: "Key-value definition as method=value, e.g. 'path=models/core'",
			},
			&cli.StringFlag{
				Name:  "definition",
				Usage: "YAML file holding a structured definition ('-' reads stdin)",
			},
		},
		Action: runAdd,
	}
}

func runAdd(_ context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	def, err := definitionFromFlags(cmd, ws.collection.Builder())
	if err != nil {
		return err
	}
	meta := selectors.Meta{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Default:     cmd.Bool("default"),
	}
	sel, err := ws.collection.Add(meta, def)
	if err != nil {
		return err
	}
	if err := ws.save(); err != nil {
		return err
	}
	ws.printf("Added selector %q at index %d (%s).\n", sel.Name, ws.collection.Len()-1, def.Mode())
	return nil
}

// definitionFromFlags reads exactly one of --inline, --kv or --definition.
func definitionFromFlags(cmd *cli.Command, b *criteria.Builder) (selectors.Definition, error) {
	var set []string
	for _, name := range []string{"inline", "kv", "definition"} {
		if cmd.IsSet(name) {
			set = append(set, "--"+name)
		}
	}
	switch len(set) {
	case 0:
		return nil, errors.New("one of --inline, --kv or --definition is required")
	case 1:
	default:
		return nil, fmt.Errorf("%s are mutually exclusive", strings.Join(set, " and "))
	}

	switch {
	case cmd.IsSet("inline"):
		return selectors.Inline(cmd.String("inline")), nil
	case cmd.IsSet("kv"):
		method, value, ok := strings.Cut(cmd.String("kv"), "=")
		if !ok {
			return nil, fmt.Errorf("--kv %q: expected method=value", cmd.String("kv"))
		}
		return selectors.KeyValue{Method: criteria.Method(strings.TrimSpace(method)), Value: strings.TrimSpace(value)}, nil
	default:
		path := cmd.String("definition")
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(cmd.Root().Reader)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read definition: %w", err)
		}
		return selectors.ParseDefinition(data, b)
	}
}
