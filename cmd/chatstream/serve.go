package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kbukum/chatstream/app"
)

// ServeCmd runs the service until interrupted.
type ServeCmd struct {
	flags *Flags

	port int
}

// NewServeCmd creates the serve command.
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the chatstream service",
		UsageText: "chatstream serve [options]",
		Description: `Starts the HTTP API and the event-stream endpoints.

Settings come from config.yml, .env files and CHATSTREAM_* environment
variables, in increasing order of precedence.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "port",
				Aliases:     []string{"p"},
				Usage:       "listen port, overrides server.port",
				Destination: &cmd.port,
			},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	var cfg app.Config
	if err := app.Load(cmd.flags.ConfigPath, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.port != 0 {
		cfg.Server.Port = cmd.port
	}
	if cmd.flags.LogLevel != "" {
		cfg.Logging.Level = cmd.flags.LogLevel
	}

	a, err := app.New(&cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
