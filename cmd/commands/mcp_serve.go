package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	dbtselmcp "github.com/dohr-michael/dbtsel/internal/mcp"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp-serve",
		Usage:     "Expose selector authoring as an MCP server (stdio)",
		ArgsUsage: "[tool...]",
		Action:    runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP stdio transport
	setupLogging(cmd, cmd.Root().ErrWriter)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bus := newBus(cfg)
	defer bus.Close()

	path := outputPath(cmd, cfg)
	tools, err := dbtselmcp.NewTools(newBuilder(cfg), dbtselmcp.Options{
		Path:   path,
		Indent: cfg.Output.Indent,
		Bus:    bus,
	})
	if err != nil {
		return err
	}

	filter := cmd.Args().Slice()
	slog.Debug("starting MCP server", "file", path, "filter", filter, "selectors", tools.Collection().Len())

	server := dbtselmcp.NewMCPServer(tools, filter...)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
