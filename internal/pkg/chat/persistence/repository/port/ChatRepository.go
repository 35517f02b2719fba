package repository

import (
	"context"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// ChatRepository is the client's view of the Chat Backend: the three calls a
// session needs. Implementations must be safe for concurrent use.
type ChatRepository interface {
	// ResolveConversation returns the conversation between userID and
	// otherUserID, creating it on first use. Repeated calls for the same pair
	// return the same id.
	ResolveConversation(ctx context.Context, userID chat.ID, otherUserID chat.ID) (chat.Conversation, error)

	// GetMessagesByConversation returns the history in chronological order.
	GetMessagesByConversation(ctx context.Context, conversationID chat.ID) ([]chat.Message, error)

	// AppendMessage stores a message and returns it as persisted, carrying the
	// backend-assigned id and timestamp.
	AppendMessage(ctx context.Context, conversationID chat.ID, senderID chat.ID, text string) (chat.Message, error)
}
