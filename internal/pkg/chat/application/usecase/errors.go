package usecase

import "errors"

// Failure classes of a chat session. Use cases wrap the transport or backend
// error with one of these via fmt.Errorf("%w: %w"), so callers can errors.Is
// on the class and errors.As on the cause.
var (
	ErrResolveConversation = errors.New("chat: resolve conversation failed")
	ErrFetchHistory        = errors.New("chat: fetch history failed")
	ErrSendMessage         = errors.New("chat: send message failed")
)
