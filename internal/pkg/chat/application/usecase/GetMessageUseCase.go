package usecase

import (
	"context"
	"fmt"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch messages of a conversation
type GetMessageInput struct {
	ConversationID chat.ID
}

// GetMessageUseCase fetches the history of a conversation
// Hexagonal: depends only on repository port
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

// Execute returns the messages in the order the backend returned them
func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ConversationID.IsZero() {
		return nil, fmt.Errorf("%w: conversationId is required", ErrFetchHistory)
	}
	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchHistory, err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}
