package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	chat "go-chatty-client/internal/pkg/chat/application/domain"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

const (
	chatsPath       = "/api/chats/chats"
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// HttpChatRepository talks to the Chat Backend over its REST surface.
type HttpChatRepository struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// Ensure interface compliance at compile time
var _ repository.ChatRepository = (*HttpChatRepository)(nil)

type Option func(*HttpChatRepository)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *HttpChatRepository) {
		if c != nil {
			r.client = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *HttpChatRepository) { r.logger = l }
}

// NewHttpChatRepository builds a repository rooted at baseURL, e.g.
// http://localhost:5000. A trailing slash is ignored.
func NewHttpChatRepository(baseURL string, opts ...Option) (*HttpChatRepository, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("chat backend: base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(err, "chat backend: parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("chat backend: unsupported scheme %q", u.Scheme)
	}

	r := &HttpChatRepository{
		baseURL: base,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = r.logger.With().Str("component", "chat-backend").Logger()
	return r, nil
}

func (r *HttpChatRepository) ResolveConversation(ctx context.Context, userID chat.ID, otherUserID chat.ID) (chat.Conversation, error) {
	var out conversationResponse
	in := resolveConversationRequest{UserID: userID, OtherUserID: otherUserID}
	if err := r.do(ctx, "resolve conversation", http.MethodPost, chatsPath, in, &out); err != nil {
		return chat.Conversation{}, err
	}
	if out.ID.IsZero() {
		return chat.Conversation{}, errors.New("resolve conversation: response carries no id")
	}
	return chat.Conversation{
		ID:           out.ID,
		Participants: chat.Pair{Local: userID, Remote: otherUserID},
		CreatedAt:    time.Time(out.CreatedAt),
	}, nil
}

func (r *HttpChatRepository) GetMessagesByConversation(ctx context.Context, conversationID chat.ID) ([]chat.Message, error) {
	var out []messageResponse
	if err := r.do(ctx, "fetch messages", http.MethodGet, messagesPath(conversationID), nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(out))
	for _, m := range out {
		msgs = append(msgs, m.toDomain(conversationID))
	}
	return msgs, nil
}

func (r *HttpChatRepository) AppendMessage(ctx context.Context, conversationID chat.ID, senderID chat.ID, text string) (chat.Message, error) {
	var out messageResponse
	in := appendMessageRequest{SenderID: senderID, Text: text}
	if err := r.do(ctx, "append message", http.MethodPost, messagesPath(conversationID), in, &out); err != nil {
		return chat.Message{}, err
	}
	if out.ID.IsZero() {
		return chat.Message{}, errors.New("append message: response carries no id")
	}
	return out.toDomain(conversationID), nil
}

func messagesPath(conversationID chat.ID) string {
	return chatsPath + "/" + url.PathEscape(conversationID.String()) + "/messages"
}

// do performs one JSON round trip. in may be nil for bodyless requests.
func (r *HttpChatRepository) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := r.logger.With().Str("op", op).Str("method", method).Str("path", path).Str("request_id", requestID).Logger()
	started := time.Now()

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("backend request failed")
		return errors.Wrapf(err, "%s", op)
	}
	defer resp.Body.Close()

	logger.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("backend request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "%s: decode response", op)
	}
	return nil
}
