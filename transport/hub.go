package transport

import (
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type members map[domain.ConnectionID]struct{}

// Hub is the websocket broadcast channel. It tracks live connections and
// the groups each one belongs to, and fans payloads out to group members.
type Hub struct {
	log *slog.Logger

	mu       sync.RWMutex
	conns    map[domain.ConnectionID]*Connection
	groups   map[domain.GroupName]members
	memberOf map[domain.ConnectionID]map[domain.GroupName]struct{}
	closing  bool
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:      log,
		conns:    make(map[domain.ConnectionID]*Connection),
		groups:   make(map[domain.GroupName]members),
		memberOf: make(map[domain.ConnectionID]map[domain.GroupName]struct{}),
	}
}

// Attach makes a connection addressable by its identifier.
func (h *Hub) Attach(conn *Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return fmt.Errorf("%w: hub is shutting down", errors.ErrBroadcastChannelFailure)
	}
	h.conns[conn.ID] = conn
	h.memberOf[conn.ID] = make(map[domain.GroupName]struct{})
	return nil
}

// Detach forgets a connection and every group membership it still holds.
func (h *Hub) Detach(connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group := range h.memberOf[connID] {
		h.removeLocked(connID, group)
	}
	delete(h.memberOf, connID)
	delete(h.conns, connID)
}

func (h *Hub) GroupAdd(_ context.Context, connID domain.ConnectionID, group domain.GroupName) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.memberOf[connID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownConnection, connID)
	}
	m := h.groups[group]
	if m == nil {
		m = make(members)
		h.groups[group] = m
	}
	m[connID] = struct{}{}
	joined[group] = struct{}{}
	return nil
}

// GroupRemove is idempotent and never fails for an unknown connection.
func (h *Hub) GroupRemove(_ context.Context, connID domain.ConnectionID, group domain.GroupName) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID, group)
	return nil
}

// SendToGroup enqueues data on every member's writer. A member whose
// buffer is full is dropped by its own connection, not by the hub.
func (h *Hub) SendToGroup(_ context.Context, group domain.GroupName, data []byte) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.groups[group]))
	for connID := range h.groups[group] {
		if conn, ok := h.conns[connID]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			h.log.Debug("Dropped group message", "group", group, "connection_id", conn.ID, "error", err)
		}
	}
	return nil
}

// Terminate closes the socket with a policy violation code.
func (h *Hub) Terminate(_ context.Context, connID domain.ConnectionID) error {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownConnection, connID)
	}
	conn.Close(websocket.ClosePolicyViolation, "unauthenticated")
	return nil
}

// Shutdown refuses new connections and closes every live one.
// It is registered as an http.Server shutdown hook since hijacked
// websocket connections are not tracked by the server.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closing = true
	conns := lo.Values(h.conns)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
	h.log.Info("Hub closed", "connections", len(conns))
}

func (h *Hub) ShuttingDown() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closing
}

// Members returns the connections currently in a group.
func (h *Hub) Members(group domain.GroupName) []domain.ConnectionID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.groups[group])
}

// GroupsOf returns the groups a connection currently belongs to.
func (h *Hub) GroupsOf(connID domain.ConnectionID) []domain.GroupName {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.memberOf[connID])
}

func (h *Hub) removeLocked(connID domain.ConnectionID, group domain.GroupName) {
	if m, ok := h.groups[group]; ok {
		delete(m, connID)
		if len(m) == 0 {
			delete(h.groups, group)
		}
	}
	if joined, ok := h.memberOf[connID]; ok {
		delete(joined, group)
	}
}
