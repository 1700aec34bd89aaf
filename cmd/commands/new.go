package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/dbtsel/clients/tui"
	"github.com/dohr-michael/dbtsel/internal/selectors"
	"github.com/dohr-michael/dbtsel/internal/wizard"
)

// NewNewCommand returns the new subcommand.
func NewNewCommand() *cli.Command {
	return &cli.Command{
		Name:   "new",
		Usage:  "Author selectors interactively and append them to the selectors file",
		Action: runNew,
	}
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	if !isTerminal(cmd.Root().Writer) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("new needs an interactive terminal; use add for scripted input")
	}

	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}

	sess := selectors.NewSession(ws.collection.Builder())
	if err := sess.Collection().Load(ws.collection.Selectors()); err != nil {
		return err
	}
	w := wizard.New(sess)

	cancelled, err := tui.Run(ctx, w, ws.path)
	if err != nil {
		return err
	}

	added := w.Added()
	if len(added) == 0 {
		if cancelled {
			ws.printf("Cancelled, %s unchanged.\n", ws.path)
		}
		return nil
	}
	ws.collection = sess.Collection()
	if err := ws.save(); err != nil {
		return err
	}
	ws.printf("Added %d selector(s) to %s.\n", len(added), ws.path)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
