package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareTextStream configures the response for an unframed chunked text body.
func PrepareTextStream(c *gin.Context) (http.Flusher, bool) {
	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Writer.(http.Flusher)
	return flusher, ok
}
