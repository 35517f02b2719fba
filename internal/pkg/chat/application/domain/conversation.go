package chat

import "time"

// Conversation is the backend-owned thread between two users.
// Resolving the same pair twice yields the same ID.
type Conversation struct {
	ID           ID        `json:"id"`
	Participants Pair      `json:"-"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Pair is the (local, remote) user pair a session is opened for.
type Pair struct {
	Local  ID
	Remote ID
}

// Valid reports whether both sides are set.
func (p Pair) Valid() bool {
	return !p.Local.IsZero() && !p.Remote.IsZero()
}

// Has reports whether userID is one of the two participants.
func (p Pair) Has(userID ID) bool {
	return userID == p.Local || userID == p.Remote
}

// Key returns an order-independent key for the pair, so that (a,b) and (b,a)
// address the same conversation.
func (p Pair) Key() string {
	a, b := string(p.Local), string(p.Remote)
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
