package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers as long as the process can serve HTTP at all. It does not
// consult components; use /health for that.
func Liveness() gin.HandlerFunc {
	body := gin.H{"status": "alive"}
	return func(c *gin.Context) { c.JSON(http.StatusOK, body) }
}
