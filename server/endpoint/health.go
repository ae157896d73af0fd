package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/chatstream/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

type healthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Health serves the aggregate of every component's health. The service is
// as healthy as its worst component; only unhealthy maps to a 503 so load
// balancers keep routing to a degraded instance.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := healthReport{
			Service:    serviceName,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: []component.Health{},
		}
		if checker != nil {
			report.Components = checker(c.Request.Context())
		}
		report.Status = worst(report.Components)

		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}

var severity = map[component.HealthStatus]int{
	component.StatusHealthy:   0,
	component.StatusDegraded:  1,
	component.StatusUnhealthy: 2,
}

func worst(hs []component.Health) component.HealthStatus {
	out := component.StatusHealthy
	for _, h := range hs {
		if severity[h.Status] > severity[out] {
			out = h.Status
		}
	}
	return out
}
