package realtime

import chat "go-chatty-client/internal/pkg/chat/application/domain"

// Frame types exchanged over the chat socket.
const (
	FrameConnected = "connected"
	FrameJoin      = "join"
	FrameJoined    = "joined"
	FrameLeave     = "leave"
	FrameLeft      = "left"
	FrameMessage   = "message"
	FrameError     = "error"
)

// Frame is the single envelope used in both directions. Only the fields
// relevant to Type are set.
type Frame struct {
	Type           string        `json:"type"`
	ConversationID chat.ID       `json:"conversation_id,omitempty"`
	Message        *chat.Message `json:"message,omitempty"`
	Code           string        `json:"code,omitempty"`
	Error          string        `json:"error,omitempty"`
}

func JoinFrame(conversationID chat.ID) Frame {
	return Frame{Type: FrameJoin, ConversationID: conversationID}
}

func MessageFrame(m chat.Message) Frame {
	return Frame{Type: FrameMessage, ConversationID: m.ConversationID, Message: &m}
}

func ErrorFrame(code, msg string) Frame {
	return Frame{Type: FrameError, Code: code, Error: msg}
}
