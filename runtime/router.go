// Package runtime holds the presence core: the connection registry and the
// group router that keeps it in sync with transport lifecycle events.
// It contains no transport or storage code; collaborators are injected.
package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// JoinPolicy decides whether an explicit join is checked against the
// membership source before the connection is subscribed.
type JoinPolicy string

const (
	// JoinPolicyTrustClient honours any join for a chat the client names.
	JoinPolicyTrustClient JoinPolicy = "trust"
	// JoinPolicyVerifyMembership rejects joins for chats the user is not a member of.
	JoinPolicyVerifyMembership JoinPolicy = "verify"
)

func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch p := JoinPolicy(s); p {
	case JoinPolicyTrustClient, JoinPolicyVerifyMembership:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown join policy %q", errors.ErrInvalidConfig, s)
	}
}

// Router orchestrates connect, disconnect, join and leave against the registry.
// Events for one connection are serialised through its registry entry;
// events for different connections run independently.
type Router struct {
	log        *slog.Logger
	registry   *Registry
	identity   contract.IIdentityResolver
	membership contract.IMembershipSource
	broadcast  contract.IBroadcastChannel
	joinPolicy JoinPolicy
}

func NewRouter(log *slog.Logger, registry *Registry, identity contract.IIdentityResolver,
	membership contract.IMembershipSource, broadcast contract.IBroadcastChannel, joinPolicy JoinPolicy) *Router {
	if joinPolicy == "" {
		joinPolicy = JoinPolicyTrustClient
	}
	return &Router{
		log:        log,
		registry:   registry,
		identity:   identity,
		membership: membership,
		broadcast:  broadcast,
		joinPolicy: joinPolicy,
	}
}

// OnConnect resolves the caller, registers the connection and subscribes it
// to every chat its user belongs to.
// Only an unresolved identity is returned as an error: the connection is
// terminated and never registered. A failing membership source leaves the
// connection Active with no subscriptions and flagged for resync.
func (r *Router) OnConnect(ctx context.Context, connID domain.ConnectionID, creds domain.Credentials) error {
	userID, ok := r.identity.Resolve(creds)
	if !ok {
		r.log.Warn("Rejecting unauthenticated connection", "connection_id", connID)
		if err := r.broadcast.Terminate(ctx, connID); err != nil {
			r.log.Warn("Terminate failed", "connection_id", connID,
				"error", fmt.Errorf("%w: %v", errors.ErrBroadcastChannelFailure, err))
		}
		return errors.ErrIdentityUnresolved
	}

	syncCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !r.registry.Insert(connID, userID, cancel) {
		r.log.Warn("Connection already registered, ignoring connect", "connection_id", connID)
		return nil
	}
	r.log.Debug("Connection active", "connection_id", connID, "user_id", userID)

	chats, err := r.membership.ListChatsForUser(syncCtx, userID)
	if err != nil {
		if !r.registry.Update(connID, func(s *Session) { s.SetPendingResync(true) }) {
			r.log.Debug("Connection removed during membership sync", "connection_id", connID)
			return nil
		}
		r.log.Warn("Membership sync failed, connection stays silent",
			"connection_id", connID, "user_id", userID,
			"error", fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err))
		return nil
	}

	if !r.subscribeAll(ctx, connID, chats) {
		r.log.Debug("Connection removed during membership sync", "connection_id", connID)
	}
	return nil
}

// OnDisconnect removes the connection and leaves every group it could be in.
// Unknown connections are a no-op, so disconnect is idempotent.
// Registry cleanup is unconditional; group removal is best-effort.
func (r *Router) OnDisconnect(ctx context.Context, connID domain.ConnectionID, reason domain.DisconnectReason) {
	userID, subscribed, ok := r.registry.Remove(connID)
	if !ok {
		r.log.Debug("Disconnect for unknown connection", "connection_id", connID, "reason", reason)
		return
	}

	// The user stored at connect time is reused, the credential context may be gone.
	toLeave := subscribed
	chats, err := r.membership.ListChatsForUser(ctx, userID)
	if err != nil {
		r.log.Warn("Membership lookup failed during disconnect",
			"connection_id", connID, "user_id", userID,
			"error", fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err))
	} else {
		toLeave = lo.Union(subscribed, chats)
	}

	for _, chatID := range toLeave {
		r.groupRemove(ctx, connID, chatID)
	}
	r.log.Debug("Connection disconnected", "connection_id", connID, "user_id", userID,
		"reason", reason, "groups_left", len(toLeave))
}

// Join subscribes an Active connection to a chat group. Repeating it is a no-op.
// Under JoinPolicyTrustClient the membership source is not consulted.
func (r *Router) Join(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) error {
	if r.joinPolicy == JoinPolicyVerifyMembership {
		if err := r.verifyMembership(ctx, connID, chatID); err != nil {
			return err
		}
	}

	added := false
	known := r.registry.Update(connID, func(s *Session) {
		if s.Subscribed(chatID) {
			return
		}
		r.groupAdd(ctx, connID, chatID)
		added = s.Subscribe(chatID)
	})
	if !known {
		r.log.Debug("Join for unknown connection", "connection_id", connID, "chat_id", chatID)
		return nil
	}
	if added {
		r.log.Debug("Joined chat", "connection_id", connID, "chat_id", chatID)
	}
	return nil
}

// Leave unsubscribes an Active connection from a chat group. Repeating it is a no-op.
func (r *Router) Leave(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) error {
	removed := false
	known := r.registry.Update(connID, func(s *Session) {
		if !s.Subscribed(chatID) {
			return
		}
		r.groupRemove(ctx, connID, chatID)
		removed = s.Unsubscribe(chatID)
	})
	if !known {
		r.log.Debug("Leave for unknown connection", "connection_id", connID, "chat_id", chatID)
		return nil
	}
	if removed {
		r.log.Debug("Left chat", "connection_id", connID, "chat_id", chatID)
	}
	return nil
}

// Publish fans a message out to a chat group the sender is subscribed to.
func (r *Router) Publish(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID, payload func(sender domain.UserID) ([]byte, error)) error {
	var (
		sender     domain.UserID
		subscribed bool
	)
	known := r.registry.Update(connID, func(s *Session) {
		sender = s.UserID()
		subscribed = s.Subscribed(chatID)
	})
	if !known {
		return errors.ErrUnknownConnection
	}
	if !subscribed {
		return errors.ErrNotSubscribed
	}

	data, err := payload(sender)
	if err != nil {
		return err
	}
	group := domain.GroupNameFor(chatID)
	if err := r.broadcast.SendToGroup(ctx, group, data); err != nil {
		r.log.Warn("Send to group failed", "group", group, "connection_id", connID,
			"error", fmt.Errorf("%w: %v", errors.ErrBroadcastChannelFailure, err))
	}
	return nil
}

// Resync retries the membership sync of a connection flagged at connect.
// It only adds subscriptions; explicit joins made meanwhile are kept.
func (r *Router) Resync(ctx context.Context, connID domain.ConnectionID) error {
	userID, pending := r.registry.PendingUser(connID)
	if !pending {
		return nil
	}

	chats, err := r.membership.ListChatsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}
	if r.subscribeAll(ctx, connID, chats) {
		r.log.Info("Membership resynced", "connection_id", connID, "user_id", userID, "chats", len(chats))
	}
	return nil
}

// ResyncPending retries every flagged connection and returns how many succeeded.
// Connections are retried concurrently so a slow one never holds back the rest.
func (r *Router) ResyncPending(ctx context.Context, timeout time.Duration) int {
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for _, connID := range r.registry.PendingResync() {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(connID domain.ConnectionID) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := r.Resync(callCtx, connID); err != nil {
				r.log.Warn("Resync failed", "connection_id", connID, "error", err)
				return
			}
			succeeded.Add(1)
		}(connID)
	}
	wg.Wait()
	return int(succeeded.Load())
}

// UserOf returns the user a registered connection was resolved to.
func (r *Router) UserOf(connID domain.ConnectionID) (domain.UserID, bool) {
	return r.registry.UserOf(connID)
}

func (r *Router) Registry() *Registry {
	return r.registry
}

// subscribeAll records and adds each chat under the connection's lock, so a
// concurrent disconnect either sees the subscription or prevents it.
func (r *Router) subscribeAll(ctx context.Context, connID domain.ConnectionID, chats []domain.ChatID) bool {
	return r.registry.Update(connID, func(s *Session) {
		for _, chatID := range lo.Uniq(chats) {
			if s.Subscribed(chatID) {
				continue
			}
			r.groupAdd(ctx, connID, chatID)
			s.Subscribe(chatID)
		}
		s.SetPendingResync(false)
	})
}

func (r *Router) verifyMembership(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) error {
	userID, ok := r.registry.UserOf(connID)
	if !ok {
		return nil
	}
	chats, err := r.membership.ListChatsForUser(ctx, userID)
	if err != nil {
		r.log.Warn("Membership check failed, join rejected", "connection_id", connID, "chat_id", chatID, "error", err)
		return fmt.Errorf("%w: %v", errors.ErrMembershipSourceUnavailable, err)
	}
	if !lo.Contains(chats, chatID) {
		r.log.Warn("Join rejected, not a member", "connection_id", connID, "user_id", userID, "chat_id", chatID)
		return errors.ErrNotAMember
	}
	return nil
}

// groupAdd and groupRemove never fail the caller: the registry is the
// source of truth and the transport retries on its side.
func (r *Router) groupAdd(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) {
	group := domain.GroupNameFor(chatID)
	if err := r.broadcast.GroupAdd(ctx, connID, group); err != nil {
		r.log.Warn("Group add failed", "connection_id", connID, "group", group,
			"error", fmt.Errorf("%w: %v", errors.ErrBroadcastChannelFailure, err))
	}
}

func (r *Router) groupRemove(ctx context.Context, connID domain.ConnectionID, chatID domain.ChatID) {
	group := domain.GroupNameFor(chatID)
	if err := r.broadcast.GroupRemove(ctx, connID, group); err != nil {
		r.log.Warn("Group remove failed", "connection_id", connID, "group", group,
			"error", fmt.Errorf("%w: %v", errors.ErrBroadcastChannelFailure, err))
	}
}
