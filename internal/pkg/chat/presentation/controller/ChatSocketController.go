package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"go-chatty-client/internal/infrastructure/realtime"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
	"go-chatty-client/internal/pkg/chat/application/session"
)

// DialFunc opens the chat socket for a user.
type DialFunc func(ctx context.Context, rawURL string, userID chat.ID) (*realtime.Connection, error)

// ChatSocketController feeds messages pushed over the chat socket into a
// session. It joins the room of whatever conversation the session loads and
// follows it when the session is bootstrapped for another pair.
type ChatSocketController struct {
	Session *session.ChatSession
	URL     string
	UserID  chat.ID
	Logger  zerolog.Logger
	Dial    DialFunc
}

func NewChatSocketController(s *session.ChatSession, url string, userID chat.ID, logger zerolog.Logger) *ChatSocketController {
	return &ChatSocketController{
		Session: s,
		URL:     url,
		UserID:  userID,
		Logger:  logger.With().Str("component", "chat-socket").Logger(),
		Dial:    realtime.Dial,
	}
}

// Run blocks until ctx is done or the socket goes away. It returns nil on
// either clean ending; the feed is not reconnected.
func (ctl *ChatSocketController) Run(ctx context.Context) error {
	convs := make(chan chat.ID, 1)
	offer := func(id chat.ID) {
		// Only the latest conversation matters.
		select {
		case <-convs:
		default:
		}
		select {
		case convs <- id:
		default:
		}
	}
	unsubscribe := ctl.Session.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventHistoryLoaded {
			offer(ev.ConversationID)
		}
	})
	defer unsubscribe()
	if id := ctl.Session.ConversationID(); !id.IsZero() {
		offer(id)
	}

	conn, err := ctl.Dial(ctx, ctl.URL, ctl.UserID)
	if err != nil {
		return pkgerrors.Wrap(err, "chat socket")
	}
	defer conn.Close(websocket.CloseNormalClosure, "client closing")
	ctl.Logger.Info().Str("url", ctl.URL).Str("connection_id", conn.ID).Msg("chat socket connected")

	frames := make(chan realtime.Frame)
	readErr := make(chan error, 1)
	go ctl.readLoop(conn, frames, readErr)

	var joined chat.ID
	for {
		select {
		case <-ctx.Done():
			return nil

		case id := <-convs:
			if id == joined {
				continue
			}
			if !joined.IsZero() {
				_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameLeave, ConversationID: joined})
			}
			if err := conn.SendFrame(realtime.JoinFrame(id)); err != nil {
				return pkgerrors.Wrap(err, "chat socket: join")
			}
			joined = id

		case f := <-frames:
			ctl.handleFrame(f)

		case err := <-readErr:
			if ctx.Err() != nil || realtime.IsClosed(err) {
				ctl.Logger.Info().Msg("chat socket closed")
				return nil
			}
			return pkgerrors.Wrap(err, "chat socket: read")
		}
	}
}

func (ctl *ChatSocketController) readLoop(conn *realtime.Connection, frames chan<- realtime.Frame, readErr chan<- error) {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			var decodeErr *realtime.DecodeError
			if errors.As(err, &decodeErr) {
				ctl.Logger.Warn().Err(err).Msg("chat socket: dropping undecodable frame")
				continue
			}
			readErr <- err
			return
		}
		select {
		case frames <- f:
		case <-conn.Done():
			return
		}
	}
}

func (ctl *ChatSocketController) handleFrame(f realtime.Frame) {
	switch f.Type {
	case realtime.FrameMessage:
		if f.Message == nil {
			return
		}
		m := *f.Message
		if m.ConversationID.IsZero() {
			m.ConversationID = f.ConversationID
		}
		if ctl.Session.Receive(m) {
			ctl.Logger.Debug().Str("message_id", m.ID.String()).Msg("pushed message accepted")
		}
	case realtime.FrameJoined:
		ctl.Logger.Debug().Str("conversation_id", f.ConversationID.String()).Msg("joined conversation room")
	case realtime.FrameError:
		ctl.Logger.Warn().Str("code", f.Code).Str("error", f.Error).Msg("chat socket error frame")
	}
}
