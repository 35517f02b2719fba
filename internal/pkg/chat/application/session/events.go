package session

import chat "go-chatty-client/internal/pkg/chat/application/domain"

// EventKind tells subscribers which transition produced an Event.
type EventKind int

const (
	// EventHistoryLoaded: bootstrap replaced the message list with the backend history.
	EventHistoryLoaded EventKind = iota + 1
	// EventMessageSent: a local send was confirmed by the backend.
	EventMessageSent
	// EventMessageReceived: a message was pushed into the session from outside.
	EventMessageReceived
)

func (k EventKind) String() string {
	switch k {
	case EventHistoryLoaded:
		return "history-loaded"
	case EventMessageSent:
		return "message-sent"
	case EventMessageReceived:
		return "message-received"
	default:
		return "unknown"
	}
}

// Event is emitted once per successful transition of the message list.
// For EventHistoryLoaded Messages is the whole history; otherwise it holds
// the single appended message.
type Event struct {
	Kind           EventKind
	ConversationID chat.ID
	LocalUser      chat.ID
	Messages       []chat.Message
}

// Last returns the most recently added message carried by the event.
func (e Event) Last() (chat.Message, bool) {
	return chat.Last(e.Messages)
}

// Subscriber receives session events. It runs on the goroutine that caused
// the transition, after the session lock is released, and must not call
// Bootstrap, Send or Receive synchronously.
type Subscriber func(Event)
