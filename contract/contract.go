//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatroom/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IIdentityResolver extracts the user behind a connection's credentials.
// It is a pure function: no logging, no side effects.
type IIdentityResolver interface {
	Resolve(creds domain.Credentials) (domain.UserID, bool)
}

// IMembershipSource returns the chats a user currently belongs to.
// Failures are transient from the router's point of view.
type IMembershipSource interface {
	ListChatsForUser(ctx context.Context, userID domain.UserID) ([]domain.ChatID, error)
}

// IBroadcastChannel is the transport's group table.
// Every command is idempotent and order-insensitive.
type IBroadcastChannel interface {
	GroupAdd(ctx context.Context, connID domain.ConnectionID, group domain.GroupName) error
	GroupRemove(ctx context.Context, connID domain.ConnectionID, group domain.GroupName) error
	SendToGroup(ctx context.Context, group domain.GroupName, payload []byte) error
	Terminate(ctx context.Context, connID domain.ConnectionID) error
}

type IChatRepository interface {
	GetChat(ctx context.Context, chatID domain.ChatID) (domain.Chat, error)
}

// ICache is the cache-aside boundary. A miss is reported as errors.ErrCacheMiss.
// Expiration is absolute: an entry set with ttl is gone after ttl regardless of reads.
type ICache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
