package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports basic liveness for the service.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
