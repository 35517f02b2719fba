package controller

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/notify"
	"go-chatty-client/internal/pkg/chat/application/session"
	"go-chatty-client/internal/pkg/chat/chattest"
	"go-chatty-client/internal/pkg/chat/persistence/repository/adapter"
)

func TestSocketFeedPushesRemoteMessages(t *testing.T) {
	b := chattest.NewBackend()
	srv, baseURL := chattest.Start(t, b)

	repo, err := adapter.NewHttpChatRepository(baseURL)
	require.NoError(t, err)
	rec := &notify.Recorder{}
	s := session.New(repo, session.WithNotifier(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	conv := s.ConversationID()

	ctl := NewChatSocketController(s, baseURL+"/ws", "13", zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- ctl.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Router.Members(conv) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = b.AppendMessage(ctx, conv, "14", "are you there?")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := s.Messages()[0]
	assert.Equal(t, chat.ID("14"), got.SenderID)
	assert.Equal(t, "are you there?", got.Text)
	_, received := rec.Counts()
	assert.Equal(t, 1, received)

	// Our own sends are not echoed back by the room, and the POST result is
	// appended exactly once.
	_, err = s.Send(ctx, "yes")
	require.NoError(t, err)
	assert.Len(t, s.Messages(), 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("socket feed did not stop")
	}
}

func TestSocketFeedFollowsRebootstrap(t *testing.T) {
	b := chattest.NewBackend()
	srv, baseURL := chattest.Start(t, b)

	repo, err := adapter.NewHttpChatRepository(baseURL)
	require.NoError(t, err)
	s := session.New(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctl := NewChatSocketController(s, baseURL+"/ws", "13", zerolog.Nop())
	go func() { _ = ctl.Run(ctx) }()

	require.NoError(t, s.Bootstrap(ctx, "13", "14"))
	first := s.ConversationID()
	require.Eventually(t, func() bool { return srv.Router.Members(first) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Bootstrap(ctx, "13", "15"))
	second := s.ConversationID()
	require.Eventually(t, func() bool {
		return srv.Router.Members(second) == 1 && srv.Router.Members(first) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketFeedDialFailure(t *testing.T) {
	s := session.New(chattest.NewBackend())
	ctl := NewChatSocketController(s, "ftp://nowhere", "13", zerolog.Nop())
	assert.Error(t, ctl.Run(context.Background()))
}
