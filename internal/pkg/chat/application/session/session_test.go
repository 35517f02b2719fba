package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheadapter "go-chatty-client/internal/infrastructure/cache/adapter"
	queueadapter "go-chatty-client/internal/infrastructure/queue/adapter"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/notify"
	"go-chatty-client/internal/pkg/chat/application/usecase"
	"go-chatty-client/internal/pkg/chat/chattest"
)

var (
	t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

// scenarioBackend answers conversation 7 for (13, 14) with one message from 14.
func scenarioBackend() *chattest.Backend {
	b := chattest.NewBackend(chattest.WithIDs(7, 1), chattest.WithClock(func() time.Time { return t1 }))
	b.Seed("13", "14", chat.Message{SenderID: "14", Text: "hi", Timestamp: t0})
	return b
}

func TestBootstrapLoadsHistoryInBackendOrder(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))

	require.NoError(t, s.Bootstrap(context.Background(), "13", "14"))

	want, err := b.GetMessagesByConversation(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, want, s.Messages())
	assert.Equal(t, chat.ID("7"), s.ConversationID())
	assert.True(t, s.Ready())

	require.Len(t, s.Messages(), 1)
	assert.Equal(t, chat.ID("1"), s.Messages()[0].ID)
	assert.Equal(t, chat.ID("14"), s.Messages()[0].SenderID)

	sent, received := rec.Counts()
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, received)
}

func TestSendAppendsBackendMessage(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	s.SetDraft("hello")
	m, err := s.SendDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, chat.Message{ID: "2", ConversationID: "7", SenderID: "13", Text: "hello", Timestamp: t1}, *m)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.ID("1"), msgs[0].ID)
	assert.Equal(t, *m, msgs[1])
	assert.Equal(t, "", s.Draft())

	sent, received := rec.Counts()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, received, "a local send must not fire received")
}

func TestSendBlankIsIgnored(t *testing.T) {
	b := scenarioBackend()
	s := New(b)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	s.SetDraft("   ")
	before := s.Messages()

	for _, text := range []string{"", "   ", "\n\t"} {
		m, err := s.Send(ctx, text)
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	m, err := s.SendDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	assert.Equal(t, 0, b.Calls(chattest.OpAppend))
	assert.Equal(t, before, s.Messages())
	assert.Equal(t, "   ", s.Draft())
}

func TestSendFailureKeepsDraftAndMessages(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	before := s.Messages()

	network := errors.New("network unreachable")
	b.Fail(chattest.OpAppend, network)

	s.SetDraft("hello")
	m, err := s.SendDraft(ctx)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, usecase.ErrSendMessage)
	assert.ErrorIs(t, err, network)

	assert.Equal(t, before, s.Messages())
	assert.Equal(t, "hello", s.Draft())
	sent, _ := rec.Counts()
	assert.Equal(t, 0, sent)

	// Manual retry once the backend recovers.
	b.Fail(chattest.OpAppend, nil)
	m, err = s.SendDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, "", s.Draft())
}

func TestSendKeepsTextOnFailureWithoutDraft(t *testing.T) {
	b := scenarioBackend()
	s := New(b)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	b.Fail(chattest.OpAppend, errors.New("boom"))
	_, err := s.Send(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, "hello", s.Draft())
	assert.Len(t, s.Messages(), 1)
}

func TestSendBeforeBootstrap(t *testing.T) {
	b := scenarioBackend()
	s := New(b)

	m, err := s.Send(context.Background(), "hello")
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrNotBootstrapped)
	assert.Equal(t, 0, b.Calls(chattest.OpAppend))
	assert.False(t, s.Ready())
}

func TestBootstrapSamePairIsIdempotent(t *testing.T) {
	b := scenarioBackend()
	ctx := context.Background()

	s := New(b)
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	first := s.ConversationID()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	assert.Equal(t, first, s.ConversationID())
	assert.Equal(t, 1, b.Calls(chattest.OpResolve))
	assert.Equal(t, 1, b.Calls(chattest.OpFetch))

	other := New(b)
	require.NoError(t, other.Bootstrap(ctx, "13", "14"))
	assert.Equal(t, first, other.ConversationID())

	reversed := New(b)
	require.NoError(t, reversed.Bootstrap(ctx, "14", "13"))
	assert.Equal(t, first, reversed.ConversationID())
}

func TestBootstrapNewPairDiscardsState(t *testing.T) {
	b := scenarioBackend()
	ctx := context.Background()
	s := New(b)
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	s.SetDraft("half typed")

	require.NoError(t, s.Bootstrap(ctx, "13", "15"))
	assert.NotEqual(t, chat.ID("7"), s.ConversationID())
	assert.Empty(t, s.Messages())
	assert.Equal(t, "", s.Draft())
	assert.Equal(t, chat.Pair{Local: "13", Remote: "15"}, s.Snapshot().Pair)
}

func TestBootstrapFailureLeavesStateEmpty(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()

	b.Fail(chattest.OpResolve, errors.New("connection refused"))
	err := s.Bootstrap(ctx, "13", "14")
	require.ErrorIs(t, err, usecase.ErrResolveConversation)
	assert.True(t, s.ConversationID().IsZero())
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, b.Calls(chattest.OpFetch))

	b.Fail(chattest.OpResolve, nil)
	b.Fail(chattest.OpFetch, errors.New("status 500"))
	err = s.Bootstrap(ctx, "13", "14")
	require.ErrorIs(t, err, usecase.ErrFetchHistory)
	assert.Empty(t, s.Messages())

	b.Fail(chattest.OpFetch, nil)
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	assert.Len(t, s.Messages(), 1)

	_, received := rec.Counts()
	assert.Equal(t, 1, received)
}

func TestBootstrapRejectsMissingUser(t *testing.T) {
	s := New(scenarioBackend())
	assert.ErrorIs(t, s.Bootstrap(context.Background(), "13", ""), ErrInvalidUser)
	assert.ErrorIs(t, s.Bootstrap(context.Background(), "", "14"), ErrInvalidUser)
}

func TestStaleBootstrapIsDropped(t *testing.T) {
	b := scenarioBackend()
	s := New(b)
	ctx := context.Background()

	release := b.Hold(chattest.OpFetch)
	first := make(chan error, 1)
	go func() { first <- s.Bootstrap(ctx, "13", "14") }()
	require.Eventually(t, func() bool { return b.Calls(chattest.OpFetch) == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- s.Bootstrap(ctx, "13", "15") }()
	require.Eventually(t, func() bool { return b.Calls(chattest.OpFetch) == 2 }, time.Second, 5*time.Millisecond)

	release()
	assert.ErrorIs(t, <-first, ErrSessionChanged)
	require.NoError(t, <-second)

	assert.Equal(t, chat.Pair{Local: "13", Remote: "15"}, s.Snapshot().Pair)
	assert.NotEqual(t, chat.ID("7"), s.ConversationID())
	assert.Empty(t, s.Messages())
}

func TestStaleSendIsDropped(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	release := b.Hold(chattest.OpAppend)
	done := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "hello")
		done <- err
	}()
	require.Eventually(t, func() bool { return b.Calls(chattest.OpAppend) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Bootstrap(ctx, "13", "15"))
	release()

	assert.ErrorIs(t, <-done, ErrSessionChanged)
	assert.Empty(t, s.Messages())
	sent, _ := rec.Counts()
	assert.Equal(t, 0, sent)
}

func TestSendDroppedAfterSwitchingBackToSamePair(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	release := b.Hold(chattest.OpAppend)
	done := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "hello")
		done <- err
	}()
	require.Eventually(t, func() bool { return b.Calls(chattest.OpAppend) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Bootstrap(ctx, "13", "15"))
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	require.Equal(t, chat.ID("7"), s.ConversationID())
	release()

	assert.ErrorIs(t, <-done, ErrSessionChanged)
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "hi", s.Messages()[0].Text)
	sent, _ := rec.Counts()
	assert.Equal(t, 0, sent)
}

func TestReceiveAppendsPushedMessages(t *testing.T) {
	b := chattest.NewBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec))
	ctx := context.Background()

	assert.False(t, s.Receive(chat.Message{ID: "1", ConversationID: "1", SenderID: "14", Text: "early"}))

	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	conv := s.ConversationID()
	_, received := rec.Counts()
	require.Equal(t, 0, received, "empty history fires nothing")

	remote := chat.Message{ID: "50", ConversationID: conv, SenderID: "14", Text: "ping", Timestamp: t1}
	assert.True(t, s.Receive(remote))
	assert.False(t, s.Receive(remote), "duplicate id")
	assert.False(t, s.Receive(chat.Message{ID: "51", ConversationID: "999", SenderID: "14", Text: "x"}))
	assert.True(t, s.Receive(chat.Message{ID: "52", ConversationID: conv, SenderID: "13", Text: "echo"}))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.ID("50"), msgs[0].ID)
	assert.Equal(t, chat.ID("52"), msgs[1].ID)

	_, received = rec.Counts()
	assert.Equal(t, 1, received)
}

func TestSendAfterPushedEchoDoesNotDuplicate(t *testing.T) {
	b := chattest.NewBackend(chattest.WithIDs(1, 1))
	s := New(b)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	// The realtime feed may deliver our own message before the POST returns.
	b.OnAppend(func(m chat.Message) { s.Receive(m) })

	var kinds []EventKind
	var mu sync.Mutex
	s.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	_, err := s.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, s.Messages(), 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventMessageReceived, EventMessageSent}, kinds)
}

func TestHistoryNotificationCanBeDisabled(t *testing.T) {
	b := scenarioBackend()
	rec := &notify.Recorder{}
	s := New(b, WithNotifier(rec), WithHistoryNotification(false))
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))

	_, received := rec.Counts()
	assert.Equal(t, 0, received)

	assert.True(t, s.Receive(chat.Message{ID: "9", ConversationID: "7", SenderID: "14", Text: "new", Timestamp: t1}))
	_, received = rec.Counts()
	assert.Equal(t, 1, received)
}

func TestSubscribeSeesEveryTransition(t *testing.T) {
	b := scenarioBackend()
	s := New(b)
	ctx := context.Background()

	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	_, err := s.Send(ctx, "hello")
	require.NoError(t, err)
	s.Receive(chat.Message{ID: "9", ConversationID: "7", SenderID: "14", Text: "yo", Timestamp: t1})

	require.Len(t, events, 3)
	assert.Equal(t, EventHistoryLoaded, events[0].Kind)
	assert.Len(t, events[0].Messages, 1)
	assert.Equal(t, EventMessageSent, events[1].Kind)
	last, ok := events[1].Last()
	require.True(t, ok)
	assert.Equal(t, "hello", last.Text)
	assert.Equal(t, EventMessageReceived, events[2].Kind)
	assert.Equal(t, chat.ID("13"), events[2].LocalUser)

	unsubscribe()
	unsubscribe()
	s.Receive(chat.Message{ID: "10", ConversationID: "7", SenderID: "14", Text: "again", Timestamp: t1})
	assert.Len(t, events, 3)
}

func TestSerialRunnerKeepsSendOrder(t *testing.T) {
	for i := 0; i < 50; i++ {
		b := scenarioBackend()
		runner := queueadapter.NewSerialRunner()
		s := New(b, WithRunner(runner))
		ctx := context.Background()
		require.NoError(t, s.Bootstrap(ctx, "13", "14"))

		release := b.Hold(chattest.OpAppend)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Send(ctx, "first")
			assert.NoError(t, err)
		}()
		require.Eventually(t, func() bool { return b.Calls(chattest.OpAppend) == 1 }, time.Second, time.Millisecond)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Send(ctx, "second")
			assert.NoError(t, err)
		}()
		if i == 0 {
			assert.Never(t, func() bool { return b.Calls(chattest.OpAppend) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
		}

		release()
		wg.Wait()
		require.NoError(t, runner.Close())

		msgs := s.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[1].Text)
		assert.Equal(t, chat.ID("2"), msgs[1].ID)
		assert.Equal(t, "second", msgs[2].Text)
		assert.Equal(t, chat.ID("3"), msgs[2].ID)
	}
}

func TestConversationCacheSkipsResolve(t *testing.T) {
	b := scenarioBackend()
	cache := cacheadapter.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, New(b, WithConversationCache(cache)).Bootstrap(ctx, "13", "14"))
	s := New(b, WithConversationCache(cache))
	require.NoError(t, s.Bootstrap(ctx, "14", "13"))

	assert.Equal(t, chat.ID("7"), s.ConversationID())
	assert.Equal(t, 1, b.Calls(chattest.OpResolve))
	assert.Equal(t, 2, b.Calls(chattest.OpFetch))
}
