package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/chatstream/version"
)

var processStart = time.Now()

// Info serves the build stamp and process uptime.
func Info(serviceName string) gin.HandlerFunc {
	build := version.Get()
	return func(c *gin.Context) {
		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"service":   serviceName,
			"build":     build,
			"uptime":    now.Sub(processStart).Truncate(time.Second).String(),
			"timestamp": now.UTC().Format(time.RFC3339),
		})
	}
}
