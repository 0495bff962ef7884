package domain

import "time"

// Chat is the metadata read through the cache-aside layer.
// The presence core only ever uses its ID.
type Chat struct {
	ID        ChatID    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Chat) Group() GroupName {
	return GroupNameFor(c.ID)
}
