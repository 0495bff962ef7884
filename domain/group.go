package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// groupPrefix is wire-visible: clients and caches key on "chat-<id>".
const groupPrefix = "chat-"

type GroupName string

// GroupNameFor returns the broadcast group of a chat, e.g. 42 -> "chat-42".
func GroupNameFor(chatID ChatID) GroupName {
	return GroupName(groupPrefix + strconv.FormatInt(int64(chatID), 10))
}

// ParseGroupName is the inverse of GroupNameFor.
func ParseGroupName(name GroupName) (ChatID, error) {
	raw, ok := strings.CutPrefix(string(name), groupPrefix)
	if !ok {
		return 0, fmt.Errorf("group %q has no %q prefix", name, groupPrefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("group %q has no valid chat id", name)
	}
	return ChatID(id), nil
}

func (g GroupName) String() string {
	return string(g)
}
