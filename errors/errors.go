package errors

import "errors"

var (
	ErrWorkerPanic = errors.New("worker panic")

	// ErrIdentityUnresolved is the only failure surfaced to the transport:
	// the connection is terminated and never registered.
	ErrIdentityUnresolved          = errors.New("identity unresolved")
	ErrMembershipSourceUnavailable = errors.New("membership source unavailable")
	ErrUnknownConnection           = errors.New("unknown connection")
	ErrBroadcastChannelFailure     = errors.New("broadcast channel failure")
	ErrNotAMember                  = errors.New("user is not a member of the chat")
	ErrNotSubscribed               = errors.New("connection is not subscribed to the chat")

	ErrInvalidFrame  = errors.New("invalid frame")
	ErrChatNotFound  = errors.New("chat not found")
	ErrCacheMiss     = errors.New("cache: miss")
	ErrInvalidConfig = errors.New("invalid configuration")
)
