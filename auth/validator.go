package auth

import (
	"chatroom/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const (
	FrameJoin  = "join"
	FrameLeave = "leave"
	FrameSend  = "send"
)

// RequestFrame is a client-initiated request read from the realtime socket.
type RequestFrame struct {
	Type   string `json:"type" validate:"required,oneof=join leave send"`
	ChatID int64  `json:"chatId" validate:"gt=0"`
	Body   string `json:"body,omitempty" validate:"required_if=Type send,max=4096"`
}

// ValidateFrame rejects non-positive chat ids and absent required fields
// before the router is ever reached.
func ValidateFrame(frame RequestFrame) error {
	if err := validate.Struct(frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidFrame, err)
	}
	return nil
}
