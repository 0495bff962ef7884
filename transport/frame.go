package transport

import (
	"chatroom/domain"
	"encoding/json"
)

// Server to client frame types.
const (
	FrameConnected = "connected"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FrameMessage   = "message"
	FrameError     = "error"
)

// ResponseFrame is written back on the realtime socket.
type ResponseFrame struct {
	Type    string          `json:"type"`
	ChatID  domain.ChatID   `json:"chatId,omitempty"`
	UserID  domain.UserID   `json:"userId,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (f ResponseFrame) Encode() []byte {
	data, _ := json.Marshal(f)
	return data
}
