package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/chatstream/api"
	"github.com/kbukum/chatstream/component"
)

// printSummary writes the startup summary: components, routes and live
// health.
func (a *App) printSummary(ctx context.Context, took time.Duration) {
	w := a.summary
	if w == nil || w == io.Discard {
		return
	}

	fmt.Fprintf(w, "\n%s %s started in %.2fs on %s\n", a.Name, a.Version, took.Seconds(), a.Addr())

	health := a.Components.HealthAll(ctx)
	fmt.Fprintf(w, "\nComponents\n")
	for i, h := range health {
		line := fmt.Sprintf("%s %s %s", treePrefix(i, len(health)), healthIcon(h.Status), h.Name)
		if d, ok := a.Components.Get(h.Name).(component.Describable); ok {
			if details := d.Describe().Details; details != "" {
				line += ": " + details
			}
		}
		if h.Message != "" {
			line += " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s\n", line)
	}

	routes := a.Server.Routes()
	for _, p := range api.StreamPaths {
		routes = append(routes, "GET "+p+" (sse)")
	}
	fmt.Fprintf(w, "\nRoutes (%d)\n", len(routes))
	for i, r := range routes {
		method, path, _ := strings.Cut(r, " ")
		fmt.Fprintf(w, "   %s %-7s %s\n", treePrefix(i, len(routes)), method, path)
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
