package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/config"
	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/gateway"
	"github.com/dohr-michael/dbtsel/internal/heartbeat"
	"github.com/dohr-michael/dbtsel/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the authoring gateway (HTTP + WebSocket)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "Directory for the event journal (overrides events.journal_dir)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level})))

	configPath := cmd.String("config")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reloader := config.NewReloader(configPath, config.ResolveHome().Dotenv(), cfg)
	reloader.OnReload(func(_, next *config.Config, changed []string) {
		for _, section := range changed {
			switch section {
			case config.SectionLimits:
				slog.Info("limits updated for new sessions", "max_depth", next.Limits.MaxDepth, "max_items", next.Limits.MaxItems)
			case config.SectionGateway, config.SectionEvents:
				slog.Warn("config section changed; restart the gateway to apply it", "section", section)
			}
		}
	})

	// CLI flags override config
	host, port := cfg.Gateway.Host, cfg.Gateway.Port
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := newBus(cfg)
	defer bus.Close()

	journalDir := cfg.Events.JournalDir
	if cmd.IsSet("journal") {
		journalDir = cmd.String("journal")
	}
	if journalDir != "" {
		journal, err := storage.NewJournal(journalDir, bus)
		if err != nil {
			return err
		}
		defer journal.Close()
		slog.Info("journaling events", "dir", journalDir)
	}

	registry := gateway.NewRegistry(func() *criteria.Builder {
		return newBuilder(reloader.Current())
	})
	server := gateway.NewServer(bus, registry, host, port, cfg.Output.Indent)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		heartbeat.Run(hbCtx, heartbeat.Path(config.ResolveHome().Dir()), heartbeat.DefaultInterval, server)
	}()
	defer func() {
		stopHeartbeat()
		<-hbDone
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			if err := reloader.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
			}
		case <-ctx.Done():
			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), reloader.Current().Gateway.ShutdownTimeout.Duration())
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("gateway: %w", err)
		}
	}
}
