package chattest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// GetMessageController handles GET /api/chats/chats/:chatId/messages
type GetMessageController struct {
	Backend *Backend
}

func NewGetMessageController(b *Backend) *GetMessageController {
	return &GetMessageController{Backend: b}
}

// Handle answers with the bare array of messages in stored order.
func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := chat.ID(c.Param("chatId"))
		if chatID.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		msgs, err := h.Backend.GetMessagesByConversation(ctx, chatID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}
