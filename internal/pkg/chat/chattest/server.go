package chattest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"go-chatty-client/internal/infrastructure/realtime"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// Server exposes a Backend over HTTP.
type Server struct {
	Backend *Backend
	Router  *realtime.Router
	engine  *gin.Engine
}

func NewServer(b *Backend) *Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{Backend: b, Router: realtime.NewRouter(), engine: engine}
	RegisterRoutes(engine.Group("/api/chats"), b)
	engine.GET("/ws", NewSocketController(b, s.Router).Handle())

	b.OnAppend(func(m chat.Message) {
		s.Router.Broadcast(m.ConversationID, realtime.MessageFrame(m), m.SenderID)
	})
	return s
}

// RegisterRoutes binds the REST controllers under g.
func RegisterRoutes(g *gin.RouterGroup, b *Backend) {
	resolveCtl := NewResolveConversationController(b)
	getMsgCtl := NewGetMessageController(b)
	sendMsgCtl := NewSendMessageController(b)

	// POST /api/chats/chats -> resolve or create the conversation of two users
	g.POST("/chats", resolveCtl.Handle())

	// GET /api/chats/chats/:chatId/messages -> history in stored order
	g.GET("/chats/:chatId/messages", getMsgCtl.Handle())

	// POST /api/chats/chats/:chatId/messages -> append a message
	g.POST("/chats/:chatId/messages", sendMsgCtl.Handle())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) Close() {
	s.Router.Close()
}

// Start serves b on a local listener for the duration of the test and
// returns the base URL.
func Start(t testing.TB, b *Backend) (*Server, string) {
	t.Helper()
	s := NewServer(b)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts.URL
}
