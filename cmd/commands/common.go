package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/config"
	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/export"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// setupLogging installs the default logger. Debug logging is enabled by the
// --debug flag; otherwise only warnings and errors reach w.
func setupLogging(cmd *cli.Command, w io.Writer) {
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the --config file, falling back to defaults when it
// does not exist.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", path)
	return cfg, nil
}

// outputPath returns --file, or the configured output path.
func outputPath(cmd *cli.Command, cfg *config.Config) string {
	if p := cmd.String("file"); p != "" {
		return p
	}
	return cfg.Output.Path
}

func newBuilder(cfg *config.Config) *criteria.Builder {
	return criteria.NewBuilder(cfg.Limits.Criteria())
}

// workspace is the selectors file a command operates on.
type workspace struct {
	cfg        *config.Config
	path       string
	collection *selectors.Collection
	out        io.Writer
}

// openWorkspace loads config and the selectors file. A missing file is an
// empty collection.
func openWorkspace(cmd *cli.Command) (*workspace, error) {
	setupLogging(cmd, cmd.Root().ErrWriter)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ws := &workspace{
		cfg:        cfg,
		path:       outputPath(cmd, cfg),
		collection: selectors.NewCollection(newBuilder(cfg)),
		out:        cmd.Root().Writer,
	}
	existing, err := export.ReadFile(ws.path, ws.collection.Builder())
	if err != nil {
		return nil, err
	}
	if err := ws.collection.Load(existing); err != nil {
		return nil, fmt.Errorf("load %s: %w", ws.path, err)
	}
	slog.Debug("selectors loaded", "path", ws.path, "selectors", len(existing))
	return ws, nil
}

// save writes the collection back to the selectors file.
func (w *workspace) save() error {
	n, err := export.WriteFile(w.path, w.collection.Selectors(), w.cfg.Output.Indent)
	if err != nil {
		return err
	}
	slog.Debug("selectors written", "path", w.path, "bytes", n)
	return nil
}

func (w *workspace) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// newBus creates an event bus that logs every event at debug level.
func newBus(cfg *config.Config) *events.Bus {
	bus := events.NewBus(cfg.Events.BufferSize)
	bus.Subscribe(func(e events.Event) {
		slog.Debug("event", "type", e.Type, "session", e.SessionID, "source", e.Source)
	})
	return bus
}
