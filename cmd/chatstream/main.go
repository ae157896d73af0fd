package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kbukum/chatstream/version"
)

// Flags holds the global flags shared by every command.
type Flags struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	flags := &Flags{}

	app := &cli.Command{
		Name:      "chatstream",
		Usage:     "Serve and follow chat message streams",
		UsageText: "chatstream [global options] command [command options]",
		Description: `chatstream delivers chat messages to browsers over Server-Sent Events.

Run 'chatstream serve' to start the service and 'chatstream tail' to follow
a stream from the terminal.`,
		Version: version.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (default: config.yml lookup)",
				Sources:     cli.EnvVars("CHATSTREAM_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level override (debug, info, warn, error)",
				Sources:     cli.EnvVars("CHATSTREAM_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
		},
	}

	app = NewServeCmd(flags).Register(app)
	app = NewTailCmd(flags).Register(app)

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
