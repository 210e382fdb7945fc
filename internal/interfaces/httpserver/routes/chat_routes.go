package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

func registerChatRoutes(router gin.IRoutes, handler *handlers.RelayHandler, log zerolog.Logger) {
	router.POST("/chat", postChat(handler, log))
}

// postChat godoc
// @Summary      Relay a chat to the completion model
// @Description  Prepends the support system prompt and streams the reply as raw UTF-8 text, flushed per fragment. A broken stream means the upstream failed mid-reply.
// @Tags         chat
// @Accept       json
// @Produce      plain
// @Param        turns  body      []chat.Turn  true  "Conversation so far"
// @Success      200    {string}  string       "reply text, chunked"
// @Failure      400    {object}  responses.ErrorResponse
// @Failure      502    {object}  responses.ErrorResponse
// @Router       /api/chat [post]
func postChat(handler *handlers.RelayHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var turns []chat.Turn
		if err := c.ShouldBindJSON(&turns); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "request body must be a JSON array of chat turns", "4b8e2f61-7c3d-4a95-b1e0-d2f6a8c37e54")
			return
		}

		fragments, err := handler.Relay(c.Request.Context(), turns)
		if err != nil {
			responses.HandleError(c, err, "completion upstream unavailable")
			return
		}

		flusher, canFlush := middlewares.PrepareTextStream(c)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		if canFlush {
			flusher.Flush()
		}

		for fragment, streamErr := range fragments {
			if streamErr != nil {
				_ = c.Error(streamErr)
				metrics.RecordRelayAbort(handler.Model())
				log.Warn().
					Err(streamErr).
					Str("request_id", middlewares.RequestIDFromContext(c)).
					Msg("aborting relay after upstream failure")
				// Drop the connection so the caller sees a broken stream rather than a clean end.
				panic(http.ErrAbortHandler)
			}
			if _, err := c.Writer.WriteString(fragment); err != nil {
				log.Debug().Err(err).Msg("client went away during relay")
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}
