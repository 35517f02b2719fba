package chat

import (
	"errors"
	"time"
)

// Domain-level errors for chat behaviors
var (
	ErrInvalidConversation = errors.New("chat: conversation/message mismatch")
	ErrNotParticipant      = errors.New("chat: sender is not a participant in the conversation")
	ErrBackdatedMessage    = errors.New("chat: message timestamp is backdated")
	ErrEmptyMessage        = errors.New("chat: empty message")
)

// Chat is the aggregate for a conversation and the invariants of its history:
// every sender is one of the two participants and timestamps never go backwards.
//
// The client uses CheckHistory to flag backends that break these rules; the
// in-memory test backend uses PostMessage to enforce them.
type Chat struct {
	Conversation  Conversation
	LastMessageAt *time.Time
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID ID) bool {
	if c == nil {
		return false
	}
	return c.Conversation.Participants.Has(userID)
}

// PostMessage applies domain rules and returns a validated message ready to persist.
//
// Validations:
// - Conversation/message identity must match
// - Sender must be a participant
// - Message must not be backdated relative to LastMessageAt (if known)
// - Text must not be blank
//
// If m.Timestamp is zero, it is set to now. On success, c.LastMessageAt is
// advanced to m.Timestamp.
func (c *Chat) PostMessage(m Message, now time.Time) (Message, error) {
	if m.ConversationID.IsZero() || c.Conversation.ID.IsZero() || m.ConversationID != c.Conversation.ID {
		return Message{}, ErrInvalidConversation
	}

	if !c.HasParticipant(m.SenderID) {
		return Message{}, ErrNotParticipant
	}

	ts := m.Timestamp
	if ts.IsZero() {
		if now.IsZero() {
			now = time.Now()
		}
		ts = now.UTC()
	}

	if c.LastMessageAt != nil && ts.Before(c.LastMessageAt.UTC()) {
		return Message{}, ErrBackdatedMessage
	}

	if _, ok := NormalizeText(m.Text); !ok {
		return Message{}, ErrEmptyMessage
	}

	m.Timestamp = ts
	c.LastMessageAt = &ts

	return m, nil
}

// CheckHistory reports the first invariant violation found in msgs, or nil.
// Messages are expected in the order the backend returned them.
func (c *Chat) CheckHistory(msgs []Message) error {
	var last time.Time
	for i, m := range msgs {
		if !c.HasParticipant(m.SenderID) {
			return &HistoryError{Index: i, MessageID: m.ID, Err: ErrNotParticipant}
		}
		if i > 0 && m.Timestamp.Before(last) {
			return &HistoryError{Index: i, MessageID: m.ID, Err: ErrBackdatedMessage}
		}
		last = m.Timestamp
	}
	return nil
}

// HistoryError pinpoints the message that broke a history invariant.
type HistoryError struct {
	Index     int
	MessageID ID
	Err       error
}

func (e *HistoryError) Error() string {
	return e.Err.Error() + " (message " + e.MessageID.String() + ")"
}

func (e *HistoryError) Unwrap() error { return e.Err }
