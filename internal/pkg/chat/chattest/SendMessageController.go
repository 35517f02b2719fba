package chattest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// SendMessageController handles POST /api/chats/chats/:chatId/messages
type SendMessageController struct {
	Backend *Backend
}

func NewSendMessageController(b *Backend) *SendMessageController {
	return &SendMessageController{Backend: b}
}

type sendMessageRequest struct {
	SenderID chat.ID `json:"senderId" binding:"required"`
	Text     string  `json:"text"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := chat.ID(c.Param("chatId"))
		if chatID.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		msg, err := h.Backend.AppendMessage(ctx, chatID, req.SenderID, req.Text)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// writeError maps backend failures to statuses the way a real chat API would.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownConversation):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrInvalidConversation):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
