package test

import (
	"chatroom/auth"
	"chatroom/cache"
	"chatroom/domain"
	"chatroom/repositories"
	"chatroom/runtime"
	"chatroom/runtime/workers"
	"chatroom/services"
	"chatroom/transport"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var secret = []byte("integration-test-secret")

// flakySource fails every lookup while down is set.
type flakySource struct {
	inner repositories.BadgerStore
	down  atomic.Bool
}

func (f *flakySource) ListChatsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChatID, error) {
	if f.down.Load() {
		return nil, fmt.Errorf("connection refused")
	}
	return f.inner.ListChatsForUser(ctx, userID)
}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	defer db.Close()

	// 1. Seed memberships and chat metadata
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewBadgerStore(db, log)
	req.NoError(store.AddMember(ctx, domain.Membership{UserID: 7, ChatID: 3}))
	req.NoError(store.AddMember(ctx, domain.Membership{UserID: 8, ChatID: 3}))
	req.NoError(store.SaveChat(ctx, domain.Chat{ID: 3, Name: "general", CreatedAt: time.Now().UTC()}))

	// 2. Wire the stack with the membership source down
	source := &flakySource{inner: store}
	source.down.Store(true)
	chatCache, err := cache.NewRistrettoCache(100)
	req.NoError(err)
	defer chatCache.Close()

	hub := transport.NewHub(log)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, auth.NewResolver(secret), source, hub, runtime.JoinPolicyVerifyMembership)
	directory := services.NewChatDirectory(log, store, chatCache, time.Minute)
	handler := transport.NewHandler(log, hub, router, transport.HandlerConfig{BufferSize: 16, ConnectTimeout: time.Second})
	server := httptest.NewServer(transport.NewRoutes(log, handler, directory, registry))
	defer server.Close()
	defer hub.Shutdown()

	supervisor := workers.NewSupervisor(log, 50*time.Millisecond)
	supervisor.Add(workers.NewResyncWorker(log, router, 20*time.Millisecond, time.Second))
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()
	defer func() {
		supervisor.Stop()
		<-supervisorDone
	}()

	dial := func(userID domain.UserID) *websocket.Conn {
		token, err := auth.NewIssuer(secret).Issue(userID, time.Minute)
		req.NoError(err)
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?access_token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		req.NoError(err)
		return conn
	}
	read := func(conn *websocket.Conn) transport.ResponseFrame {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		req.NoError(err)
		var frame transport.ResponseFrame
		req.NoError(json.Unmarshal(data, &frame))
		return frame
	}

	// 3. User 7 connects while memberships are unreachable: active but silent
	alice := dial(7)
	defer alice.Close()
	req.Equal(transport.FrameConnected, read(alice).Type)
	req.Empty(hub.Members("chat-3"))
	req.Equal(1, registry.Stats().PendingResync)

	// 4. The source recovers and the resync worker subscribes the connection
	source.down.Store(false)
	req.Eventually(func() bool {
		return len(hub.Members("chat-3")) == 1 && registry.Stats().PendingResync == 0
	}, 2*time.Second, 10*time.Millisecond)

	// 5. User 8 connects normally and talks to chat 3
	bob := dial(8)
	defer bob.Close()
	req.Equal(transport.FrameConnected, read(bob).Type)
	req.NoError(bob.WriteJSON(auth.RequestFrame{Type: auth.FrameSend, ChatID: 3, Body: "hello"}))

	frame := read(alice)
	req.Equal(transport.FrameMessage, frame.Type)
	req.Equal(domain.UserID(8), frame.Message.SenderID)
	req.Equal(transport.FrameMessage, read(bob).Type)

	// 6. A join for a chat bob does not belong to is refused under the verify policy
	req.NoError(bob.WriteJSON(auth.RequestFrame{Type: auth.FrameJoin, ChatID: 99}))
	frame = read(bob)
	req.Equal(transport.FrameError, frame.Type)
	req.Empty(hub.Members("chat-99"))

	// 7. Chat metadata is served through the cache
	for i := 0; i < 2; i++ {
		resp, err := http.Get(server.URL + "/chats/3")
		req.NoError(err)
		var chat domain.Chat
		req.NoError(json.NewDecoder(resp.Body).Decode(&chat))
		_ = resp.Body.Close()
		req.Equal("general", chat.Name)
	}
	cached, err := chatCache.Get(ctx, "chat-3")
	req.NoError(err)
	req.Contains(cached, "general")

	// 8. Alice leaves: only bob remains registered and in the group
	req.NoError(alice.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)))
	req.Eventually(func() bool {
		return registry.Stats().Connections == 1 && len(hub.Members("chat-3")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
