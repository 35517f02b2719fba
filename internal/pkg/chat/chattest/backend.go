// Package chattest provides an in-memory Chat Backend for tests: a
// repository implementation usable directly, and a gin server exposing the
// same data over the backend's REST and websocket surface.
package chattest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

// Op names one of the three backend calls.
type Op string

const (
	OpResolve Op = "resolve"
	OpFetch   Op = "fetch"
	OpAppend  Op = "append"
)

var ErrUnknownConversation = errors.New("chattest: unknown conversation")

// Backend stores conversations and messages in memory. Ids are sequential
// integers. Resolving a pair is idempotent regardless of argument order.
type Backend struct {
	mu       sync.Mutex
	now      func() time.Time
	nextConv int64
	nextMsg  int64
	byPair   map[string]*chat.Chat
	byID     map[chat.ID]*chat.Chat
	messages map[chat.ID][]chat.Message

	calls    map[Op]int
	failures map[Op]error
	holds    map[Op]chan struct{}
	onAppend []func(chat.Message)
}

var _ repository.ChatRepository = (*Backend)(nil)

type BackendOption func(*Backend)

// WithClock fixes the time source used to stamp appended messages.
func WithClock(now func() time.Time) BackendOption {
	return func(b *Backend) { b.now = now }
}

// WithIDs sets the first conversation id and message id handed out.
func WithIDs(firstConversation, firstMessage int64) BackendOption {
	return func(b *Backend) {
		b.nextConv = firstConversation
		b.nextMsg = firstMessage
	}
}

func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		now:      func() time.Time { return time.Now().UTC() },
		nextConv: 1,
		nextMsg:  1,
		byPair:   map[string]*chat.Chat{},
		byID:     map[chat.ID]*chat.Chat{},
		messages: map[chat.ID][]chat.Message{},
		calls:    map[Op]int{},
		failures: map[Op]error{},
		holds:    map[Op]chan struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fail makes every call of op return err until Fail(op, nil).
func (b *Backend) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Hold blocks calls of op until the returned release function is called or
// the call's context ends. Calls are counted before they block.
func (b *Backend) Hold(op Op) (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.holds[op] = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.holds[op] == gate {
				delete(b.holds, op)
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Calls reports how many times op was invoked, including failed calls.
func (b *Backend) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// OnAppend registers fn to run after every stored message.
func (b *Backend) OnAppend(fn func(chat.Message)) {
	b.mu.Lock()
	b.onAppend = append(b.onAppend, fn)
	b.mu.Unlock()
}

// Seed creates (or finds) the conversation of the pair and stores msgs as-is,
// filling in missing ids, conversation ids and timestamps.
func (b *Backend) Seed(local, remote chat.ID, msgs ...chat.Message) chat.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.resolveLocked(chat.Pair{Local: local, Remote: remote})
	for _, m := range msgs {
		if m.ID.IsZero() {
			m.ID = b.newMessageIDLocked()
		}
		m.ConversationID = c.Conversation.ID
		if m.Timestamp.IsZero() {
			m.Timestamp = b.now()
		}
		b.messages[c.Conversation.ID] = append(b.messages[c.Conversation.ID], m)
		ts := m.Timestamp
		c.LastMessageAt = &ts
	}
	return c.Conversation.ID
}

// Conversation returns the stored chat aggregate.
func (b *Backend) Conversation(id chat.ID) (chat.Chat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.byID[id]
	if !ok {
		return chat.Chat{}, false
	}
	return *c, true
}

func (b *Backend) ResolveConversation(ctx context.Context, userID chat.ID, otherUserID chat.ID) (chat.Conversation, error) {
	if err := b.enter(ctx, OpResolve); err != nil {
		return chat.Conversation{}, err
	}
	pair := chat.Pair{Local: userID, Remote: otherUserID}
	if !pair.Valid() {
		return chat.Conversation{}, errors.New("chattest: userId and otherUserId are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.resolveLocked(pair)
	conv := c.Conversation
	conv.Participants = pair
	return conv, nil
}

func (b *Backend) GetMessagesByConversation(ctx context.Context, conversationID chat.ID) ([]chat.Message, error) {
	if err := b.enter(ctx, OpFetch); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byID[conversationID]; !ok {
		return nil, ErrUnknownConversation
	}
	return append([]chat.Message{}, b.messages[conversationID]...), nil
}

func (b *Backend) AppendMessage(ctx context.Context, conversationID chat.ID, senderID chat.ID, text string) (chat.Message, error) {
	if err := b.enter(ctx, OpAppend); err != nil {
		return chat.Message{}, err
	}

	b.mu.Lock()
	c, ok := b.byID[conversationID]
	if !ok {
		b.mu.Unlock()
		return chat.Message{}, ErrUnknownConversation
	}
	m, err := c.PostMessage(chat.Message{ConversationID: conversationID, SenderID: senderID, Text: text}, b.now())
	if err != nil {
		b.mu.Unlock()
		return chat.Message{}, err
	}
	m.ID = b.newMessageIDLocked()
	b.messages[conversationID] = append(b.messages[conversationID], m)
	hooks := append([]func(chat.Message){}, b.onAppend...)
	b.mu.Unlock()

	for _, fn := range hooks {
		fn(m)
	}
	return m, nil
}

// enter counts the call, waits on a hold and returns the injected failure.
func (b *Backend) enter(ctx context.Context, op Op) error {
	b.mu.Lock()
	b.calls[op]++
	gate := b.holds[op]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[op]
}

func (b *Backend) resolveLocked(pair chat.Pair) *chat.Chat {
	if c, ok := b.byPair[pair.Key()]; ok {
		return c
	}
	id := chat.ID(strconv.FormatInt(b.nextConv, 10))
	b.nextConv++
	c := &chat.Chat{Conversation: chat.Conversation{ID: id, Participants: pair, CreatedAt: b.now()}}
	b.byPair[pair.Key()] = c
	b.byID[id] = c
	return c
}

func (b *Backend) newMessageIDLocked() chat.ID {
	id := chat.ID(strconv.FormatInt(b.nextMsg, 10))
	b.nextMsg++
	return id
}
