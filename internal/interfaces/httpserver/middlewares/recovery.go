package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
)

// Recovery turns handler panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http drops the connection without writing a terminator.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			logger.Error().
				Interface("panic", recovered).
				Str("path", c.Request.URL.Path).
				Str("request_id", RequestIDFromContext(c)).
				Msg("recovered from panic")
			if c.Writer.Written() {
				c.Abort()
				return
			}
			responses.HandleErrorWithStatus(c, http.StatusInternalServerError, nil, "internal server error")
		}()
		c.Next()
	}
}
