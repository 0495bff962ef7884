package repositories

import (
	"chatroom/domain"
	"chatroom/errors"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) BadgerStore {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestBadgerStore_ListChatsForUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := openStore(t)

	// Given user 7 in chats 3, 10 and 9, and user 70 in chat 1
	for _, m := range []domain.Membership{
		{UserID: 7, ChatID: 3},
		{UserID: 7, ChatID: 10},
		{UserID: 7, ChatID: 9},
		{UserID: 7, ChatID: 9},
		{UserID: 70, ChatID: 1},
	} {
		req.NoError(store.AddMember(ctx, m))
	}

	// Then each user only sees its own chats, numerically ordered
	chats, err := store.ListChatsForUser(ctx, 7)
	req.NoError(err)
	req.Equal([]domain.ChatID{3, 9, 10}, chats)

	chats, err = store.ListChatsForUser(ctx, 70)
	req.NoError(err)
	req.Equal([]domain.ChatID{1}, chats)

	// And an unknown user has no chats
	chats, err = store.ListChatsForUser(ctx, 8)
	req.NoError(err)
	req.Empty(chats)
}

func TestBadgerStore_RemoveMember(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := openStore(t)
	req.NoError(store.AddMember(context.Background(), domain.Membership{UserID: 7, ChatID: 3}))
	req.NoError(store.AddMember(context.Background(), domain.Membership{UserID: 7, ChatID: 4}))

	req.NoError(store.RemoveMember(context.Background(), domain.Membership{UserID: 7, ChatID: 3}))
	req.NoError(store.RemoveMember(context.Background(), domain.Membership{UserID: 7, ChatID: 3}))

	chats, err := store.ListChatsForUser(ctx, 7)
	req.NoError(err)
	req.Equal([]domain.ChatID{4}, chats)
}

func TestBadgerStore_Cancelled_Context_Is_Unavailable(t *testing.T) {
	req := require.New(t)
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListChatsForUser(ctx, 7)

	req.True(stderrors.Is(err, errors.ErrMembershipSourceUnavailable))
}

func TestBadgerStore_Chat_Roundtrip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := openStore(t)
	chat := domain.Chat{ID: 3, Name: "general", CreatedAt: time.Now().UTC().Truncate(time.Second)}

	req.NoError(store.SaveChat(ctx, chat))

	fetched, err := store.GetChat(ctx, 3)
	req.NoError(err)
	req.Equal(chat.ID, fetched.ID)
	req.Equal(chat.Name, fetched.Name)
	req.True(chat.CreatedAt.Equal(fetched.CreatedAt))

	_, err = store.GetChat(ctx, 4)
	req.True(stderrors.Is(err, errors.ErrChatNotFound))
}

func TestBadgerStore_ListMemberships(t *testing.T) {
	req := require.New(t)
	store := openStore(t)
	req.NoError(store.AddMember(context.Background(), domain.Membership{UserID: 7, ChatID: 3}))
	req.NoError(store.AddMember(context.Background(), domain.Membership{UserID: 8, ChatID: 3}))
	req.NoError(store.SaveChat(context.Background(), domain.Chat{ID: 3, Name: "general"}))

	memberships, err := store.ListMemberships(context.Background())

	req.NoError(err)
	req.ElementsMatch([]domain.Membership{{UserID: 7, ChatID: 3}, {UserID: 8, ChatID: 3}}, memberships)
}
