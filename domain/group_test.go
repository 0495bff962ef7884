package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupNameFor(t *testing.T) {
	req := require.New(t)
	req.Equal(GroupName("chat-42"), GroupNameFor(42))
	req.Equal(GroupName("chat-1"), GroupNameFor(1))
	req.Equal("chat-9007199254740993", GroupNameFor(9007199254740993).String())
}

func TestParseGroupName(t *testing.T) {
	tests := []struct {
		name    string
		group   GroupName
		want    ChatID
		wantErr bool
	}{
		{"Valid group", "chat-42", 42, false},
		{"Missing prefix", "room-42", 0, true},
		{"Not a number", "chat-abc", 0, true},
		{"Zero id", "chat-0", 0, true},
		{"Negative id", "chat--3", 0, true},
		{"Empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := ParseGroupName(tt.group)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestGroupName_RoundTrip(t *testing.T) {
	req := require.New(t)
	for _, id := range []ChatID{1, 3, 5, 9, 1000} {
		got, err := ParseGroupName(GroupNameFor(id))
		req.NoError(err)
		req.Equal(id, got)
	}
}
