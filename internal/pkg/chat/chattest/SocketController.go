package chattest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-chatty-client/internal/infrastructure/realtime"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// SocketController handles GET /ws?user_id=<id>. Clients join conversation
// rooms and receive every message appended to them by someone else.
type SocketController struct {
	Backend *Backend
	Router  *realtime.Router
}

func NewSocketController(b *Backend, router *realtime.Router) *SocketController {
	return &SocketController{Backend: b, Router: router}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (ctl *SocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := chat.ID(c.Query("user_id"))
		if userID.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.Router.Attach(conn)
		defer func() {
			ctl.Router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameConnected})

		for {
			frame, err := conn.ReadFrame()
			if err != nil {
				var decodeErr *realtime.DecodeError
				if errors.As(err, &decodeErr) {
					_ = conn.SendFrame(realtime.ErrorFrame("bad_request", "invalid payload"))
					continue
				}
				return
			}

			switch frame.Type {
			case realtime.FrameJoin:
				ctl.handleJoin(conn, frame)
			case realtime.FrameLeave:
				ctl.Router.Leave(frame.ConversationID, conn)
				_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameLeft, ConversationID: frame.ConversationID})
			default:
				_ = conn.SendFrame(realtime.ErrorFrame("unsupported_type", "unknown frame type"))
			}
		}
	}
}

func (ctl *SocketController) handleJoin(conn *realtime.Connection, frame realtime.Frame) {
	if frame.ConversationID.IsZero() {
		_ = conn.SendFrame(realtime.ErrorFrame("bad_request", "conversation_id is required"))
		return
	}
	c, ok := ctl.Backend.Conversation(frame.ConversationID)
	if !ok {
		_ = conn.SendFrame(realtime.ErrorFrame("not_found", "unknown conversation"))
		return
	}
	if !c.HasParticipant(conn.UserID) {
		_ = conn.SendFrame(realtime.ErrorFrame("forbidden", "user is not a participant in this conversation"))
		return
	}
	ctl.Router.Join(frame.ConversationID, conn)
	_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameJoined, ConversationID: frame.ConversationID})
}
