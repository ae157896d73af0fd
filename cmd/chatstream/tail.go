package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/sseclient"
)

// TailCmd follows an event stream and prints each message.
type TailCmd struct {
	flags *Flags

	url   string
	raw   bool
	pings bool

	styles tailStyles
	// width truncates message lines to the terminal. Zero disables it.
	width int
}

// tailStyles colors tail output. Writers that are not terminals get plain
// text.
type tailStyles struct {
	time   lipgloss.Style
	sender lipgloss.Style
	event  lipgloss.Style
}

func newTailStyles(w io.Writer) tailStyles {
	r := lipgloss.NewRenderer(w)
	return tailStyles{
		time:   r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		sender: r.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true),
		event:  r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
	}
}

// NewTailCmd creates the tail command.
func NewTailCmd(flags *Flags) *TailCmd {
	return &TailCmd{flags: flags}
}

// Register adds the tail command to the application.
func (cmd *TailCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "tail",
		Usage:     "Follow a message stream",
		UsageText: "chatstream tail [options]",
		Description: `Connects to a push or polling endpoint and prints messages as they arrive.
The connection is re-established with backoff when the server goes away.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Aliases:     []string{"u"},
				Usage:       "stream endpoint",
				Value:       "http://localhost:3000/sse-route",
				Destination: &cmd.url,
			},
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print event data verbatim",
				Destination: &cmd.raw,
			},
			&cli.BoolFlag{
				Name:        "pings",
				Usage:       "also print keep-alive events",
				Destination: &cmd.pings,
			},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *TailCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := &logger.Config{Level: "warn", Format: "console", Output: "stderr"}
	if cmd.flags.LogLevel != "" {
		cfg.Level = cmd.flags.LogLevel
	}
	cfg.ApplyDefaults()
	log := logger.New(cfg, "chatstream-tail")

	client := sseclient.New(sseclient.WithLogger(log))
	out := c.Root().Writer
	cmd.styles = newTailStyles(out)
	cmd.width = terminalWidth(out)
	return client.Tail(ctx, cmd.url, func(ev *sseclient.Event) error {
		return cmd.print(out, ev)
	})
}

func (cmd *TailCmd) print(w io.Writer, ev *sseclient.Event) error {
	if ev.Event == "ping" && !cmd.pings {
		return nil
	}
	if cmd.raw || ev.Event != "message" {
		name := ev.Event
		if name == "" {
			name = "data"
		}
		_, err := fmt.Fprintf(w, "%s: %s\n", cmd.styles.event.Render(name), ev.Data)
		return err
	}

	msgs, err := ev.Messages()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		prefix := fmt.Sprintf("%s  %s -> %s: ",
			cmd.styles.time.Render(m.UpdatedAt.Local().Format(time.DateTime)),
			cmd.styles.sender.Render(m.Sender.String()), m.Receiver)
		content := m.Content
		if cmd.width > 0 {
			content = truncate(content, cmd.width-lipgloss.Width(prefix))
		}
		if _, err := fmt.Fprintln(w, prefix+content); err != nil {
			return err
		}
	}
	return nil
}

// terminalWidth is the column count of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	switch {
	case len(r) <= n:
		return s
	case n <= 1:
		return "…"
	}
	return string(r[:n-1]) + "…"
}
