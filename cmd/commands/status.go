package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/dbtsel/internal/config"
	"github.com/dohr-michael/dbtsel/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show gateway status",
		Action: func(_ context.Context, cmd *cli.Command) error {
			out := cmd.Root().Writer
			status, rec, err := heartbeat.Find(heartbeat.Path(config.ResolveHome().Dir()), 2*heartbeat.DefaultInterval)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			now := time.Now()
			switch status {
			case heartbeat.StatusAlive:
				fmt.Fprintf(out, "Gateway: ALIVE on %s (PID %d, uptime %s, %d sessions)\n",
					rec.Addr, rec.PID, rec.Uptime(now), rec.Sessions)
			case heartbeat.StatusStale:
				fmt.Fprintf(out, "Gateway: STALE (PID %d, last heartbeat %s ago)\n",
					rec.PID, now.Sub(rec.UpdatedAt).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Fprintln(out, "Gateway: NOT RUNNING")
			}
			return nil
		},
	}
}
