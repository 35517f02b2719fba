// Package notify holds the side-effect capabilities a chat session triggers
// when messages are sent or received. The terminal client rings the bell.
package notify

import (
	"io"
	"sync"
)

// Notifier is the pair of capabilities a session owns. Calls happen after the
// session state has changed and must not block for long.
type Notifier interface {
	Sent()
	Received()
}

// Nop ignores every notification.
type Nop struct{}

func (Nop) Sent()     {}
func (Nop) Received() {}

// Funcs adapts two plain functions; nil fields are skipped.
type Funcs struct {
	OnSent     func()
	OnReceived func()
}

func (f Funcs) Sent() {
	if f.OnSent != nil {
		f.OnSent()
	}
}

func (f Funcs) Received() {
	if f.OnReceived != nil {
		f.OnReceived()
	}
}

// Bell rings the terminal bell. Received rings twice so the two cues can be
// told apart by ear.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBell(out io.Writer) *Bell {
	return &Bell{out: out}
}

func (b *Bell) Sent() { b.ring(1) }

func (b *Bell) Received() { b.ring(2) }

func (b *Bell) ring(n int) {
	if b == nil || b.out == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		_, _ = b.out.Write([]byte{'\a'})
	}
}

// Recorder counts notifications. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	sent     int
	received int
}

func (r *Recorder) Sent() {
	r.mu.Lock()
	r.sent++
	r.mu.Unlock()
}

func (r *Recorder) Received() {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()
}

// Counts returns how many Sent and Received calls were seen.
func (r *Recorder) Counts() (sent, received int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent, r.received
}
