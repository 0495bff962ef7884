// Package domain contains core concepts of the presence system.
// No runtime, network, or storage logic should be added here.
package domain

// UserID identifies a user. Zero is reserved for "unresolved".
type UserID int64

// Unresolved is the UserID returned when credentials carry no usable subject.
const Unresolved UserID = 0

func (u UserID) Valid() bool {
	return u > 0
}

type ChatID int64

// ConnectionID is assigned by the transport layer, unique per session.
type ConnectionID string

// Credentials is the opaque bundle attached to a connection by the
// authentication layer. Token holds the raw signed claim set.
type Credentials struct {
	Token string
}

type Membership struct {
	UserID UserID
	ChatID ChatID
}
