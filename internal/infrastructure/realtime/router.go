package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

// Router tracks server-side socket connections and the conversation rooms
// they joined. A user keeps a single active connection; attaching a new one
// closes the previous.
type Router struct {
	mu     sync.RWMutex
	conns  map[string]*Connection             // connection id -> connection
	byUser map[chat.ID]string                 // user id -> connection id
	rooms  map[chat.ID]map[string]*Connection // conversation id -> connection id -> connection
}

func NewRouter() *Router {
	return &Router{
		conns:  make(map[string]*Connection),
		byUser: make(map[chat.ID]string),
		rooms:  make(map[chat.ID]map[string]*Connection),
	}
}

// Attach registers and starts conn.
func (r *Router) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if id, ok := r.byUser[conn.UserID]; ok {
		previous = r.conns[id]
		r.detachLocked(id)
	}
	r.conns[conn.ID] = conn
	r.byUser[conn.UserID] = conn.ID
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// Join adds conn to the room of conversationID. Unknown connections are ignored.
func (r *Router) Join(conversationID chat.ID, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn.ID]; !ok {
		return false
	}
	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[conversationID] = room
	}
	room[conn.ID] = conn
	return true
}

func (r *Router) Leave(conversationID chat.ID, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(conversationID, conn.ID)
	r.mu.Unlock()
}

// Members returns how many connections joined conversationID.
func (r *Router) Members(conversationID chat.ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[conversationID])
}

// Broadcast sends f to every member of the conversation except excludeUser
// and returns how many connections accepted it.
func (r *Router) Broadcast(conversationID chat.ID, f Frame, excludeUser chat.ID) int {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.rooms[conversationID]))
	for _, conn := range r.rooms[conversationID] {
		if !excludeUser.IsZero() && conn.UserID == excludeUser {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.SendFrame(f); err == nil {
			delivered++
		}
	}
	return delivered
}

// Close disconnects everyone.
func (r *Router) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.byUser = make(map[chat.ID]string)
	r.rooms = make(map[chat.ID]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "router shutdown")
	}
}

func (r *Router) detachLocked(connID string) {
	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if current, ok := r.byUser[conn.UserID]; ok && current == connID {
		delete(r.byUser, conn.UserID)
	}
	for roomID := range r.rooms {
		r.leaveLocked(roomID, connID)
	}
}

func (r *Router) leaveLocked(conversationID chat.ID, connID string) {
	room := r.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
}
