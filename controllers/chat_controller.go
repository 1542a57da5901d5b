package controllers

import (
	"errors"
	"net/http"

	"hasiru/middlewares"
	"hasiru/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionHeader = "X-Session-ID"

type ChatController struct {
	Chat   *services.ChatService
	Logger *zap.Logger
}

func NewChatController(chat *services.ChatService, logger *zap.Logger) *ChatController {
	return &ChatController{Chat: chat, Logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Send relays a message within the caller's session named by X-Session-ID.
func (cc *ChatController) Send(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	reply, err := cc.Chat.Send(c.Request.Context(), middlewares.Owner(c), c.GetHeader(sessionHeader), req.Message)
	if errors.Is(err, services.ErrEmptyMessage) {
		respondError(c, http.StatusBadRequest, "empty_message", "Message is required")
		return
	}
	if err != nil {
		respondError(c, http.StatusBadGateway, "chat_failed", "Internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (cc *ChatController) Reset(c *gin.Context) {
	cc.Chat.Reset(middlewares.Owner(c), c.GetHeader(sessionHeader))
	c.Status(http.StatusNoContent)
}
