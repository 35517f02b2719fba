package chattest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// ResolveConversationController handles POST /api/chats/chats (one controller per endpoint)
type ResolveConversationController struct {
	Backend *Backend
}

func NewResolveConversationController(b *Backend) *ResolveConversationController {
	return &ResolveConversationController{Backend: b}
}

type resolveConversationRequest struct {
	UserID      chat.ID `json:"userId" binding:"required"`
	OtherUserID chat.ID `json:"otherUserId" binding:"required"`
}

func (h *ResolveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		conv, err := h.Backend.ResolveConversation(ctx, req.UserID, req.OtherUserID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           conv.ID,
			"createdAt":    conv.CreatedAt,
			"participants": []chat.ID{conv.Participants.Local, conv.Participants.Remote},
		})
	}
}
