package services

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"
)

type IChatDirectory interface {
	GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error)
	Invalidate(ctx context.Context, chatID domain.ChatID) error
}

// ChatDirectory is a read-through cache in front of the chat repository,
// keyed by the chat's group name. The presence router never consults it.
type ChatDirectory struct {
	log        *slog.Logger
	repository contract.IChatRepository
	cache      contract.ICache
	ttl        time.Duration
}

func NewChatDirectory(log *slog.Logger, repository contract.IChatRepository, cache contract.ICache, ttl time.Duration) *ChatDirectory {
	return &ChatDirectory{log: log, repository: repository, cache: cache, ttl: ttl}
}

// GetChat serves from the cache and falls back to the repository on a miss.
// A failing cache degrades to a direct repository read.
func (d *ChatDirectory) GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error) {
	key := domain.GroupNameFor(chatID).String()

	cached, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var chat domain.Chat
		decodeErr := json.Unmarshal([]byte(cached), &chat)
		if decodeErr == nil {
			return chat, nil
		}
		d.log.Warn("Dropping undecodable cache entry", "chat_id", chatID, "error", decodeErr)
		_ = d.cache.Remove(ctx, key)
	case !stderrors.Is(err, errors.ErrCacheMiss):
		d.log.Warn("Cache read failed", "chat_id", chatID, "error", err)
	}

	chat, err := d.repository.GetChat(ctx, chatID)
	if err != nil {
		return domain.Chat{}, err
	}

	encoded, err := json.Marshal(chat)
	if err != nil {
		return chat, nil
	}
	if err := d.cache.Set(ctx, key, string(encoded), d.ttl); err != nil {
		d.log.Warn("Cache write failed", "chat_id", chatID, "error", err)
	}
	return chat, nil
}

func (d *ChatDirectory) Invalidate(ctx context.Context, chatID domain.ChatID) error {
	return d.cache.Remove(ctx, domain.GroupNameFor(chatID).String())
}
