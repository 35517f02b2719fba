package chat

import (
	"errors"
	"strings"
	"time"
)

// Message is an immutable entry in a conversation. Id and timestamp are
// assigned by the backend; the client never invents them.
type Message struct {
	ID             ID        `json:"id"`
	ConversationID ID        `json:"conversationId"`
	SenderID       ID        `json:"senderId"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// IsFrom reports whether the message was authored by userID.
func (m Message) IsFrom(userID ID) bool {
	return m.SenderID == userID
}

// NormalizeText trims the draft and reports whether anything is left to send.
func NormalizeText(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

// NewMessage validates a message about to be stored by a backend.
// A zero timestamp is set to now.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID.IsZero() || m.SenderID.IsZero() {
		return nil, errors.New("conversationId and senderId are required")
	}

	if _, ok := NormalizeText(m.Text); !ok {
		return nil, ErrEmptyMessage
	}

	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	return &m, nil
}

// Last returns the most recently added message of msgs.
func Last(msgs []Message) (Message, bool) {
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}
