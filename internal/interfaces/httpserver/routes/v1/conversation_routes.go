package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

type turnRequest struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system" example:"user"`
	Content string `json:"content" example:"How do I prepare for a coding interview?"`
}

type documentRequest struct {
	Messages []turnRequest `json:"messages" binding:"required,dive"`
}

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations/me", getMyConversation(handler))
	router.PUT("/conversations/me", putMyConversation(handler))
}

// getMyConversation godoc
// @Summary      Fetch the caller's conversation
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  chat.Document
// @Failure      401  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/conversations/me [get]
func getMyConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middlewares.PrincipalFromContext(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "a9d14e73-5b2c-4f06-8e31-c7f0b2d5e948")
			return
		}

		doc, err := handler.Get(c.Request.Context(), principal)
		if err != nil {
			message := "failed to load conversation"
			if platformerrors.IsNotFound(err) {
				message = "conversation not found"
			}
			responses.HandleError(c, err, message)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// putMyConversation godoc
// @Summary      Overwrite the caller's conversation
// @Tags         conversations
// @Accept       json
// @Security     BearerAuth
// @Param        document  body  documentRequest  true  "Full conversation"
// @Success      204
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      401  {object}  responses.ErrorResponse
// @Router       /v1/conversations/me [put]
func putMyConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middlewares.PrincipalFromContext(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "16c0f9b8-3e4a-4d27-92f5-b8a1e6d07c33")
			return
		}

		var req documentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid conversation document: "+err.Error(), "e5b3a0d7-81f4-4c6e-a9d2-40c7f1e8b615")
			return
		}

		messages := make(chat.Conversation, 0, len(req.Messages))
		for _, turn := range req.Messages {
			messages = append(messages, chat.Turn{Role: chat.Role(turn.Role), Content: turn.Content})
		}

		if err := handler.Put(c.Request.Context(), principal, messages); err != nil {
			responses.HandleError(c, err, "failed to save conversation")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
