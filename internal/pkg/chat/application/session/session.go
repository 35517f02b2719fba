// Package session holds the state of one two-party chat screen: the resolved
// conversation, its messages and the local draft. It mediates between the
// backend use cases and whatever renders the conversation.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	cacheport "go-chatty-client/internal/infrastructure/cache/port"
	queueadapter "go-chatty-client/internal/infrastructure/queue/adapter"
	qport "go-chatty-client/internal/infrastructure/queue/port"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/notify"
	"go-chatty-client/internal/pkg/chat/application/usecase"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

var (
	// ErrNotBootstrapped is returned by Send before a conversation is resolved.
	ErrNotBootstrapped = errors.New("chat session: conversation not resolved yet")
	// ErrSessionChanged is returned when a completion arrives for a session
	// that has since been bootstrapped for another pair. The result is dropped.
	ErrSessionChanged = errors.New("chat session: session changed while request was in flight")
	// ErrInvalidUser is returned by Bootstrap when either user id is empty.
	ErrInvalidUser = errors.New("chat session: local and remote user are required")
)

// State is a point-in-time copy of the session.
type State struct {
	Pair           chat.Pair
	ConversationID chat.ID
	Messages       []chat.Message
	Draft          string
	Ready          bool
}

// ChatSession is safe for concurrent use. Completions of backend calls are
// applied only if the session still belongs to the pair that issued them.
type ChatSession struct {
	resolve *usecase.ResolveConversationUseCase
	history *usecase.GetMessageUseCase
	send    *usecase.SendMessageUseCase

	cache         cacheport.Cache
	runner        qport.Runner
	notifier      notify.Notifier
	logger        zerolog.Logger
	notifyHistory bool

	mu             sync.Mutex
	generation     uint64
	epoch          uint64 // bumped whenever the pair changes
	pair           chat.Pair
	bootstrapped   bool
	conversationID chat.ID
	messages       []chat.Message
	seen           map[chat.ID]struct{}
	draft          string

	// emitMu keeps event delivery in the same order as the state changes.
	emitMu      sync.Mutex
	subscribers map[int]Subscriber
	nextSubID   int
}

func New(repo repository.ChatRepository, opts ...Option) *ChatSession {
	s := &ChatSession{
		runner:        queueadapter.NewDirectRunner(),
		notifier:      notify.Nop{},
		logger:        zerolog.Nop(),
		notifyHistory: true,
		seen:          map[chat.ID]struct{}{},
		subscribers:   map[int]Subscriber{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With().Str("component", "chat-session").Logger()

	s.resolve = usecase.NewResolveConversationUseCase(repo, s.cache, s.logger)
	s.history = usecase.NewGetMessageUseCase(repo)
	s.send = usecase.NewSendMessageUseCase(repo)

	s.Subscribe(s.notifyOn)
	return s
}

// Bootstrap resolves the conversation of (local, remote) and loads its history.
//
// Calling it again for the pair that is already loaded does nothing. A
// different pair discards the current state before anything is requested.
// After a failure the state keeps its prior value and the same pair may be
// bootstrapped again; nothing is retried automatically.
func (s *ChatSession) Bootstrap(ctx context.Context, local, remote chat.ID) error {
	pair := chat.Pair{Local: local, Remote: remote}
	if !pair.Valid() {
		return ErrInvalidUser
	}

	s.mu.Lock()
	if s.pair == pair && s.bootstrapped {
		s.mu.Unlock()
		return nil
	}
	if s.pair != pair {
		s.resetLocked(pair)
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	logger := s.logger.With().
		Str("local_user", local.String()).
		Str("remote_user", remote.String()).
		Logger()

	conv, err := s.resolve.Execute(ctx, usecase.ResolveConversationInput{UserID: local, OtherUserID: remote})
	if err != nil {
		logger.Error().Err(err).Msg("bootstrap: resolve conversation")
		return err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		logger.Debug().Str("conversation_id", conv.ID.String()).Msg("bootstrap: stale conversation dropped")
		return ErrSessionChanged
	}
	s.conversationID = conv.ID
	s.mu.Unlock()

	logger = logger.With().Str("conversation_id", conv.ID.String()).Logger()

	msgs, err := s.history.Execute(ctx, usecase.GetMessageInput{ConversationID: conv.ID})
	if err != nil {
		logger.Error().Err(err).Msg("bootstrap: fetch history")
		return err
	}

	agg := chat.Chat{Conversation: chat.Conversation{ID: conv.ID, Participants: pair}}
	if err := agg.CheckHistory(msgs); err != nil {
		logger.Warn().Err(err).Msg("bootstrap: backend history breaks conversation invariants")
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		logger.Debug().Msg("bootstrap: stale history dropped")
		return ErrSessionChanged
	}
	s.messages = append(make([]chat.Message, 0, len(msgs)), msgs...)
	s.seen = make(map[chat.ID]struct{}, len(msgs))
	for _, m := range msgs {
		s.seen[m.ID] = struct{}{}
	}
	s.bootstrapped = true
	ev := Event{
		Kind:           EventHistoryLoaded,
		ConversationID: conv.ID,
		LocalUser:      local,
		Messages:       append([]chat.Message(nil), msgs...),
	}
	s.emitUnlock(ev)

	logger.Info().Int("messages", len(msgs)).Msg("bootstrap: history loaded")
	return nil
}

// Send posts text as the local user. Blank text is ignored: no request is
// made, nothing changes and (nil, nil) is returned.
//
// The message enters the list only once the backend has returned it. On
// failure the text is kept as the draft so the user can retry by hand.
func (s *ChatSession) Send(ctx context.Context, text string) (*chat.Message, error) {
	if _, ok := chat.NormalizeText(text); !ok {
		return nil, nil
	}

	s.mu.Lock()
	pair, convID, epoch := s.pair, s.conversationID, s.epoch
	if !convID.IsZero() {
		s.draft = text
	}
	s.mu.Unlock()

	if convID.IsZero() {
		s.logger.Warn().Msg("send: no conversation yet")
		return nil, ErrNotBootstrapped
	}

	logger := s.logger.With().Str("conversation_id", convID.String()).Logger()

	// The result is applied inside the job so that, with a serial runner,
	// messages enter the list in submission order.
	var sent chat.Message
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		m, err := s.send.Execute(ctx, usecase.SendMessageInput{
			ConversationID: convID,
			SenderID:       pair.Local,
			Text:           text,
		})
		if err != nil {
			return err
		}
		if err := s.applySent(epoch, convID, text, m); err != nil {
			logger.Debug().Str("message_id", m.ID.String()).Msg("send: stale confirmation dropped")
			return err
		}
		sent = m
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrSessionChanged) {
			logger.Error().Err(err).Msg("send: append message")
		}
		return nil, err
	}

	logger.Debug().Str("message_id", sent.ID.String()).Msg("send: message appended")
	return &sent, nil
}

// applySent records a confirmed message unless the session moved to another
// pair since the send started.
func (s *ChatSession) applySent(epoch uint64, convID chat.ID, text string, sent chat.Message) error {
	s.mu.Lock()
	if s.epoch != epoch || s.conversationID != convID {
		s.mu.Unlock()
		return ErrSessionChanged
	}
	// A realtime push may have delivered the message before the POST returned.
	if _, dup := s.seen[sent.ID]; !dup {
		s.messages = append(s.messages, sent)
		s.seen[sent.ID] = struct{}{}
	}
	if s.draft == text {
		s.draft = ""
	}
	ev := Event{
		Kind:           EventMessageSent,
		ConversationID: convID,
		LocalUser:      s.pair.Local,
		Messages:       []chat.Message{sent},
	}
	s.emitUnlock(ev)
	return nil
}

// SendDraft sends the current draft.
func (s *ChatSession) SendDraft(ctx context.Context) (*chat.Message, error) {
	return s.Send(ctx, s.Draft())
}

// Receive appends a message pushed from outside the request/response cycle,
// such as a realtime feed. It reports whether the message was added; messages
// of another conversation and ids already present are ignored.
func (s *ChatSession) Receive(m chat.Message) bool {
	s.mu.Lock()
	if s.conversationID.IsZero() || m.ID.IsZero() || m.ConversationID != s.conversationID {
		s.mu.Unlock()
		return false
	}
	if _, dup := s.seen[m.ID]; dup {
		s.mu.Unlock()
		return false
	}
	if !s.pair.Has(m.SenderID) {
		s.logger.Warn().Str("message_id", m.ID.String()).Str("sender_id", m.SenderID.String()).
			Msg("receive: sender is not a participant")
	}
	s.messages = append(s.messages, m)
	s.seen[m.ID] = struct{}{}
	ev := Event{
		Kind:           EventMessageReceived,
		ConversationID: s.conversationID,
		LocalUser:      s.pair.Local,
		Messages:       []chat.Message{m},
	}
	s.emitUnlock(ev)
	return true
}

func (s *ChatSession) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *ChatSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Messages returns a copy of the message list.
func (s *ChatSession) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

func (s *ChatSession) ConversationID() chat.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Ready reports whether a conversation is resolved, i.e. whether Send may be
// called.
func (s *ChatSession) Ready() bool {
	return !s.ConversationID().IsZero()
}

func (s *ChatSession) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Pair:           s.pair,
		ConversationID: s.conversationID,
		Messages:       append([]chat.Message(nil), s.messages...),
		Draft:          s.draft,
		Ready:          !s.conversationID.IsZero(),
	}
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (s *ChatSession) Subscribe(fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}
	s.emitMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.emitMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.emitMu.Lock()
			delete(s.subscribers, id)
			s.emitMu.Unlock()
		})
	}
}

func (s *ChatSession) resetLocked(pair chat.Pair) {
	s.pair = pair
	s.epoch++
	s.bootstrapped = false
	s.conversationID = ""
	s.messages = nil
	s.seen = map[chat.ID]struct{}{}
	s.draft = ""
}

// emitUnlock must be called with s.mu held. It releases s.mu and delivers ev
// to the subscribers in registration order.
func (s *ChatSession) emitUnlock(ev Event) {
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.subscribers[id](ev)
	}
}

// notifyOn drives the notifier from the event stream. Sent fires on every
// confirmed send; Received fires when the last added message is not ours.
func (s *ChatSession) notifyOn(ev Event) {
	if ev.Kind == EventMessageSent {
		s.notifier.Sent()
		return
	}
	if ev.Kind == EventHistoryLoaded && !s.notifyHistory {
		return
	}
	if last, ok := ev.Last(); ok && !last.IsFrom(ev.LocalUser) {
		s.notifier.Received()
	}
}
