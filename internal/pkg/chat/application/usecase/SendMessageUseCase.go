package usecase

import (
	"context"
	"fmt"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message
type SendMessageInput struct {
	ConversationID chat.ID
	SenderID       chat.ID
	Text           string
}

// SendMessageUseCase appends a message and returns the backend's copy of it
type SendMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewSendMessageUseCase(repo repository.ChatRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

// Execute sends the text as typed; blank text is rejected with chat.ErrEmptyMessage
// so that callers decide whether blank input is a no-op.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (chat.Message, error) {
	if in.ConversationID.IsZero() || in.SenderID.IsZero() {
		return chat.Message{}, fmt.Errorf("%w: conversationId and senderId are required", ErrSendMessage)
	}
	if _, ok := chat.NormalizeText(in.Text); !ok {
		return chat.Message{}, chat.ErrEmptyMessage
	}

	msg, err := uc.Repo.AppendMessage(ctx, in.ConversationID, in.SenderID, in.Text)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %w", ErrSendMessage, err)
	}
	return msg, nil
}
