package runtime

import (
	"chatroom/domain"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

type Set map[domain.ChatID]struct{}

// entry is one live connection. Its own mutex serialises every event for
// that connection; the registry lock only ever guards the map itself.
// userID never changes after Insert. The counters are mirrored in atomics
// so registry-wide scans never wait on an entry held across I/O.
type entry struct {
	mu            sync.Mutex
	userID        domain.UserID
	state         domain.ConnectionState
	chats         Set
	cancelSync    context.CancelFunc
	pendingResync atomic.Bool
	subscriptions atomic.Int64
}

// Session is the locked view of an entry handed to Registry.Update callbacks.
// It must not escape the callback.
type Session struct {
	id domain.ConnectionID
	e  *entry
}

func (s *Session) ID() domain.ConnectionID { return s.id }

func (s *Session) UserID() domain.UserID { return s.e.userID }

func (s *Session) Subscribed(chatID domain.ChatID) bool {
	_, ok := s.e.chats[chatID]
	return ok
}

// Subscribe records a subscription and reports whether it was new.
func (s *Session) Subscribe(chatID domain.ChatID) bool {
	if s.Subscribed(chatID) {
		return false
	}
	s.e.chats[chatID] = struct{}{}
	s.e.subscriptions.Add(1)
	return true
}

// Unsubscribe drops a subscription and reports whether it existed.
func (s *Session) Unsubscribe(chatID domain.ChatID) bool {
	if !s.Subscribed(chatID) {
		return false
	}
	delete(s.e.chats, chatID)
	s.e.subscriptions.Add(-1)
	return true
}

func (s *Session) PendingResync() bool { return s.e.pendingResync.Load() }

func (s *Session) SetPendingResync(pending bool) { s.e.pendingResync.Store(pending) }

// Stats is a point-in-time summary used by heartbeat logging and /presence.
type Stats struct {
	Connections   int `json:"connections"`
	Subscriptions int `json:"subscriptions"`
	PendingResync int `json:"pendingResync"`
}

// Registry maps live connections to the chats they are subscribed to.
// Operations on one connection are atomic; operations on different
// connections carry no ordering guarantee relative to each other.
type Registry struct {
	mu          sync.RWMutex
	connections map[domain.ConnectionID]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[domain.ConnectionID]*entry),
	}
}

// Insert registers an Active connection with an empty subscription set.
// cancelSync, when non-nil, is invoked on removal to abort an in-flight
// membership sync. It returns false if the identifier is already known.
func (r *Registry) Insert(connID domain.ConnectionID, userID domain.UserID, cancelSync context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; ok {
		return false
	}
	r.connections[connID] = &entry{
		userID:     userID,
		state:      domain.Active,
		chats:      make(Set),
		cancelSync: cancelSync,
	}
	return true
}

// Remove deletes a connection and returns the user and subscriptions it held.
// Once Remove returns, no Update on that connection can run again.
// Removing an unknown connection is a no-op.
func (r *Registry) Remove(connID domain.ConnectionID) (domain.UserID, []domain.ChatID, bool) {
	r.mu.Lock()
	e, ok := r.connections[connID]
	if ok {
		delete(r.connections, connID)
	}
	r.mu.Unlock()

	if !ok {
		return domain.Unresolved, nil, false
	}

	// Waits for any in-flight Update on this connection to finish.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = domain.Disconnected
	if e.cancelSync != nil {
		e.cancelSync()
		e.cancelSync = nil
	}
	chats := sortedChats(e.chats)
	e.chats = make(Set)
	e.subscriptions.Store(0)
	e.pendingResync.Store(false)
	return e.userID, chats, true
}

// Update runs fn with exclusive access to one connection's entry.
// It returns false without calling fn when the connection is unknown or
// already removed, so a late event can never resurrect an entry.
func (r *Registry) Update(connID domain.ConnectionID, fn func(s *Session)) bool {
	e := r.lookup(connID)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == domain.Disconnected {
		return false
	}
	fn(&Session{id: connID, e: e})
	return true
}

// AddSubscription is idempotent; it is a no-op on an unknown connection.
func (r *Registry) AddSubscription(connID domain.ConnectionID, chatID domain.ChatID) bool {
	added := false
	r.Update(connID, func(s *Session) {
		added = s.Subscribe(chatID)
	})
	return added
}

// RemoveSubscription is idempotent; it is a no-op on an unknown connection.
func (r *Registry) RemoveSubscription(connID domain.ConnectionID, chatID domain.ChatID) bool {
	removed := false
	r.Update(connID, func(s *Session) {
		removed = s.Unsubscribe(chatID)
	})
	return removed
}

// SubscriptionsOf returns the connection's chats in ascending order,
// or nil when the connection is unknown.
func (r *Registry) SubscriptionsOf(connID domain.ConnectionID) []domain.ChatID {
	var chats []domain.ChatID
	r.Update(connID, func(s *Session) {
		chats = sortedChats(s.e.chats)
	})
	return chats
}

func (r *Registry) Exists(connID domain.ConnectionID) bool {
	return r.Update(connID, func(*Session) {})
}

// UserOf returns the user resolved at connect time.
func (r *Registry) UserOf(connID domain.ConnectionID) (domain.UserID, bool) {
	userID := domain.Unresolved
	ok := r.Update(connID, func(s *Session) {
		userID = s.UserID()
	})
	return userID, ok
}

// PendingResync lists connections whose membership sync failed at connect.
// It never takes an entry lock.
func (r *Registry) PendingResync() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []domain.ConnectionID
	for connID, e := range r.connections {
		if e.pendingResync.Load() {
			pending = append(pending, connID)
		}
	}
	slices.Sort(pending)
	return pending
}

// PendingUser returns the user of a connection still flagged for resync,
// without waiting on the connection's lock.
func (r *Registry) PendingUser(connID domain.ConnectionID) (domain.UserID, bool) {
	e := r.lookup(connID)
	if e == nil || !e.pendingResync.Load() {
		return domain.Unresolved, false
	}
	return e.userID, true
}

// Stats reads the mirrored counters under the map lock only, so a
// connection stuck in a broadcast call cannot stall it.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Connections: len(r.connections)}
	for _, e := range r.connections {
		stats.Subscriptions += int(e.subscriptions.Load())
		if e.pendingResync.Load() {
			stats.PendingResync++
		}
	}
	return stats
}

func (r *Registry) lookup(connID domain.ConnectionID) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connections[connID]
}

func sortedChats(set Set) []domain.ChatID {
	chats := lo.Keys(set)
	slices.Sort(chats)
	return chats
}
