package realtime

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
)

const handshakeTimeout = 10 * time.Second

// Dial opens the chat socket at rawURL as userID. The user id is passed as the
// user_id query parameter. The returned connection is already started.
func Dial(ctx context.Context, rawURL string, userID chat.ID) (*Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "realtime: parse url")
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, errors.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("user_id", userID.String())
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "realtime: dial %s: status %d", u.Redacted(), resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "realtime: dial %s", u.Redacted())
	}

	conn := NewConnection(userID, ws)
	conn.Start()
	return conn, nil
}
