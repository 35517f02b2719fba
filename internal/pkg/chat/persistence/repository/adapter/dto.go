package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// resolveConversationRequest is the body of POST /api/chats/chats
type resolveConversationRequest struct {
	UserID      chat.ID `json:"userId"`
	OtherUserID chat.ID `json:"otherUserId"`
}

type conversationResponse struct {
	ID        chat.ID  `json:"id"`
	CreatedAt flexTime `json:"createdAt"`
}

// appendMessageRequest is the body of POST /api/chats/chats/{chatId}/messages
type appendMessageRequest struct {
	SenderID chat.ID `json:"senderId"`
	Text     string  `json:"text"`
}

// messageResponse tolerates the field spellings seen on chat backends:
// the conversation may come back as conversationId or chatId, or not at all.
type messageResponse struct {
	ID             chat.ID  `json:"id"`
	ConversationID chat.ID  `json:"conversationId"`
	ChatID         chat.ID  `json:"chatId"`
	SenderID       chat.ID  `json:"senderId"`
	Text           string   `json:"text"`
	Timestamp      flexTime `json:"timestamp"`
}

func (m messageResponse) toDomain(fallbackConversationID chat.ID) chat.Message {
	convID := m.ConversationID
	if convID.IsZero() {
		convID = m.ChatID
	}
	if convID.IsZero() {
		convID = fallbackConversationID
	}
	return chat.Message{
		ID:             m.ID,
		ConversationID: convID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		Timestamp:      time.Time(m.Timestamp),
	}
}

// flexTime decodes RFC3339 strings or epoch milliseconds.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = flexTime{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = flexTime{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			if ms, convErr := strconv.ParseInt(s, 10, 64); convErr == nil {
				*t = flexTime(time.UnixMilli(ms).UTC())
				return nil
			}
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		*t = flexTime(parsed)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	ms, err := n.Int64()
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", n, err)
	}
	*t = flexTime(time.UnixMilli(ms).UTC())
	return nil
}
