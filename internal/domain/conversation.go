package domain

import (
	"errors"
	"fmt"
	"strings"
)

const DefaultSystemPrompt = "You are a assistant"

// ConversationContext is an append-only transcript. The first message, when
// present, is always the system prompt and is installed exactly once.
type ConversationContext struct {
	systemPrompt    string
	systemInstalled bool
	messages        []Message
}

func NewConversationContext(systemPrompt string) *ConversationContext {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &ConversationContext{systemPrompt: systemPrompt}
}

// RestoreConversationContext rebuilds a context from a persisted transcript.
func RestoreConversationContext(systemPrompt string, messages []Message) (*ConversationContext, error) {
	c := NewConversationContext(systemPrompt)
	if len(messages) == 0 {
		return c, nil
	}

	if messages[0].Role != RoleSystem {
		return nil, fmt.Errorf("restore conversation: first message role is %q, want %q", messages[0].Role, RoleSystem)
	}
	for i, message := range messages {
		if !message.Role.Valid() {
			return nil, fmt.Errorf("restore conversation: message %d has unsupported role %q", i, message.Role)
		}
		if i > 0 && message.Role == RoleSystem {
			return nil, errors.New("restore conversation: system prompt appears more than once")
		}
	}

	c.systemPrompt = messages[0].Content
	c.systemInstalled = true
	c.messages = append(make([]Message, 0, len(messages)), messages...)

	return c, nil
}

func (c *ConversationContext) SystemPrompt() string {
	return c.systemPrompt
}

// AppendSystemIfEmpty installs prompt as the system message unless one is already present.
func (c *ConversationContext) AppendSystemIfEmpty(prompt string) bool {
	if c.systemInstalled {
		return false
	}

	if strings.TrimSpace(prompt) != "" {
		c.systemPrompt = prompt
	}
	c.messages = append(c.messages, Message{Role: RoleSystem, Content: c.systemPrompt})
	c.systemInstalled = true

	return true
}

func (c *ConversationContext) AppendUser(content string) {
	c.AppendSystemIfEmpty(c.systemPrompt)
	c.messages = append(c.messages, Message{Role: RoleUser, Content: content})
}

func (c *ConversationContext) AppendAssistant(content string) {
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content})
}

func (c *ConversationContext) Serialize() string {
	lines := make([]string, 0, len(c.messages))
	for _, message := range c.messages {
		lines = append(lines, message.Line())
	}

	return strings.Join(lines, "\n")
}

func (c *ConversationContext) Snapshot() []Message {
	return append(make([]Message, 0, len(c.messages)), c.messages...)
}

func (c *ConversationContext) Len() int {
	return len(c.messages)
}
