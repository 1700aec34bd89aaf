package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	wsclient "github.com/dohr-michael/dbtsel/clients/ws"
	"github.com/dohr-michael/dbtsel/internal/config"
	wsprotocol "github.com/dohr-michael/dbtsel/internal/gateway/ws"
	"github.com/dohr-michael/dbtsel/internal/heartbeat"
)

// NewWatchCommand returns the watch subcommand.
func NewWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream the events of a gateway session",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "session",
				UsageText: "Session id",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Gateway address (default: from the running gateway's heartbeat)",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "Print the session's selectors.yml before streaming",
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, cmd.Root().ErrWriter)
	out := cmd.Root().Writer

	id := cmd.StringArg("session")
	if id == "" {
		return errors.New("a session id is required")
	}
	addr, err := gatewayAddr(cmd)
	if err != nil {
		return err
	}

	client, err := wsclient.Dial(ctx, wsclient.SessionURL(addr, id))
	if err != nil {
		return err
	}
	defer client.Close()

	if cmd.Bool("render") {
		if _, err := client.Request(wsprotocol.MethodRenderSelectors, nil); err != nil {
			return err
		}
	}

	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		switch frame.Type {
		case wsprotocol.FrameTypeEvent:
			fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.TimeOnly), frame.Event, frame.Payload)
		case wsprotocol.FrameTypeResponse:
			if frame.Error != "" {
				fmt.Fprintf(out, "error: %s\n", frame.Error)
				continue
			}
			var res wsprotocol.RenderResult
			if err := frame.Decode(&res); err == nil && res.YAML != "" {
				fmt.Fprint(out, res.YAML)
			}
		}
	}
}

// gatewayAddr returns --addr, or the address of the running gateway.
func gatewayAddr(cmd *cli.Command) (string, error) {
	if a := cmd.String("addr"); a != "" {
		return a, nil
	}
	status, rec, err := heartbeat.Find(heartbeat.Path(config.ResolveHome().Dir()), 2*heartbeat.DefaultInterval)
	if err != nil {
		return "", err
	}
	if status != heartbeat.StatusAlive {
		return "", errors.New("no running gateway found; pass --addr")
	}
	return rec.BaseURL(), nil
}
