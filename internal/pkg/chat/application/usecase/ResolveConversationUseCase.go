package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	cacheport "go-chatty-client/internal/infrastructure/cache/port"
	chat "go-chatty-client/internal/pkg/chat/application/domain"
	repository "go-chatty-client/internal/pkg/chat/persistence/repository/port"
)

// DefaultConversationTTL bounds how long a cached pair -> conversation id
// mapping is trusted.
const DefaultConversationTTL = 24 * time.Hour

// ResolveConversationInput names the two users of the session
type ResolveConversationInput struct {
	UserID      chat.ID
	OtherUserID chat.ID
}

// ResolveConversationUseCase resolves or creates the conversation of a user
// pair. Resolution is idempotent on the backend, which makes the optional
// cache safe: a cached id is the id the backend would return anyway.
type ResolveConversationUseCase struct {
	Repo   repository.ChatRepository
	Cache  cacheport.Cache // optional
	TTL    time.Duration
	Logger zerolog.Logger
}

func NewResolveConversationUseCase(repo repository.ChatRepository, cache cacheport.Cache, logger zerolog.Logger) *ResolveConversationUseCase {
	return &ResolveConversationUseCase{Repo: repo, Cache: cache, TTL: DefaultConversationTTL, Logger: logger}
}

// Execute returns the conversation of the pair, consulting the cache first
// when one is configured. Cache failures never fail the resolution.
func (uc *ResolveConversationUseCase) Execute(ctx context.Context, in ResolveConversationInput) (chat.Conversation, error) {
	pair := chat.Pair{Local: in.UserID, Remote: in.OtherUserID}
	if !pair.Valid() {
		return chat.Conversation{}, fmt.Errorf("%w: userId and otherUserId are required", ErrResolveConversation)
	}

	key := conversationCacheKey(pair)
	if uc.Cache != nil {
		id, err := uc.Cache.Get(ctx, key)
		switch {
		case err == nil && id != "":
			uc.Logger.Debug().Str("conversation_id", id).Msg("conversation resolved from cache")
			return chat.Conversation{ID: chat.ID(id), Participants: pair}, nil
		case err != nil && !errors.Is(err, cacheport.ErrMiss):
			uc.Logger.Warn().Err(err).Msg("conversation cache lookup failed")
		}
	}

	conv, err := uc.Repo.ResolveConversation(ctx, in.UserID, in.OtherUserID)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("%w: %w", ErrResolveConversation, err)
	}

	if uc.Cache != nil {
		if err := uc.Cache.Set(ctx, key, conv.ID.String(), uc.TTL); err != nil {
			uc.Logger.Warn().Err(err).Msg("conversation cache store failed")
		}
	}
	return conv, nil
}

func conversationCacheKey(p chat.Pair) string {
	return "chat:conversation:" + p.Key()
}
