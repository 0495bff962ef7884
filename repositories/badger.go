package repositories

import (
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const (
	memberPrefix = "member:"
	chatPrefix   = "chat:"
)

// BadgerStore keeps chat memberships and chat metadata in BadgerDB.
// Memberships are stored as empty values under "member:{user}:{chat}" so a
// prefix scan per user lists its chats. Chats are JSON under "chat:{id}".
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) BadgerStore {
	return BadgerStore{db: db, log: log}
}

func memberKey(userID domain.UserID, chatID domain.ChatID) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", memberPrefix, userID, chatID))
}

func userPrefix(userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%d:", memberPrefix, userID))
}

func chatKey(chatID domain.ChatID) []byte {
	return []byte(fmt.Sprintf("%s%d", chatPrefix, chatID))
}

// ListChatsForUser returns the user's chats in ascending order.
func (b BadgerStore) ListChatsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChatID, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}

	var chats []domain.ChatID
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := userPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := string(it.Item().Key()[len(prefix):])
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupted membership key %q: %w", it.Item().Key(), err)
			}
			chats = append(chats, domain.ChatID(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}
	// Keys sort lexically, "10" before "9".
	slices.Sort(chats)
	return chats, nil
}

// ListMemberships returns every stored membership, used by inspection tools.
func (b BadgerStore) ListMemberships(ctx context.Context) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(memberPrefix)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := parseMemberKey(string(it.Item().Key()))
			if err != nil {
				return err
			}
			memberships = append(memberships, m)
		}
		return nil
	})
	return memberships, err
}

func parseMemberKey(key string) (domain.Membership, error) {
	rest, ok := strings.CutPrefix(key, memberPrefix)
	if !ok {
		return domain.Membership{}, fmt.Errorf("not a membership key %q", key)
	}
	rawUser, rawChat, ok := strings.Cut(rest, ":")
	if !ok {
		return domain.Membership{}, fmt.Errorf("corrupted membership key %q", key)
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("corrupted membership key %q: %w", key, err)
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return domain.Membership{}, fmt.Errorf("corrupted membership key %q: %w", key, err)
	}
	return domain.Membership{UserID: domain.UserID(userID), ChatID: domain.ChatID(chatID)}, nil
}

func (b BadgerStore) AddMember(_ context.Context, m domain.Membership) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(memberKey(m.UserID, m.ChatID), nil)
	})
}

// RemoveMember is a no-op when the membership does not exist.
func (b BadgerStore) RemoveMember(_ context.Context, m domain.Membership) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(memberKey(m.UserID, m.ChatID))
	})
}

func (b BadgerStore) SaveChat(_ context.Context, chat domain.Chat) error {
	bytes, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(chat.ID), bytes)
	})
}

func (b BadgerStore) GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chat{}, err
	}
	var chat domain.Chat
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(chatID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &chat)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, fmt.Errorf("%w: %d", errors.ErrChatNotFound, chatID)
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("read chat %d: %w", chatID, err)
	}
	return chat, nil
}
