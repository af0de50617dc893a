package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unsupported message role %q", raw)
	}
	return role, nil
}

type Message struct {
	Role    Role
	Content string
}

// Line renders the message the way it appears in a serialized prompt.
func (m Message) Line() string {
	return string(m.Role) + ": " + m.Content
}
