package session

import (
	"github.com/rs/zerolog"

	cacheport "go-chatty-client/internal/infrastructure/cache/port"
	qport "go-chatty-client/internal/infrastructure/queue/port"
	"go-chatty-client/internal/pkg/chat/application/notify"
)

type Option func(*ChatSession)

// WithNotifier sets the sent/received capabilities. Defaults to notify.Nop.
func WithNotifier(n notify.Notifier) Option {
	return func(s *ChatSession) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *ChatSession) { s.logger = l }
}

// WithRunner decides how sends are executed. The default runs them directly,
// so concurrent sends race; a serial runner keeps them in submission order.
func WithRunner(r qport.Runner) Option {
	return func(s *ChatSession) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithConversationCache remembers pair -> conversation resolutions.
func WithConversationCache(c cacheport.Cache) Option {
	return func(s *ChatSession) { s.cache = c }
}

// WithHistoryNotification controls whether a loaded history ending in a
// remote message fires Received. Enabled by default; when disabled only
// messages arriving while the session is open do.
func WithHistoryNotification(enabled bool) Option {
	return func(s *ChatSession) { s.notifyHistory = enabled }
}
