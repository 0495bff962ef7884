package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat broadcast.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    ChatID    `json:"chatId"`
	SenderID  UserID    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(chatID ChatID, senderID UserID, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: at,
	}
}
