package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type SessionID string

const DefaultSessionID SessionID = "default"

// Session is the persisted form of one conversation with the oracle.
type Session struct {
	ID           SessionID
	ModelID      *big.Int
	SystemPrompt string
	Messages     []Message
	LastTxHash   common.Hash
	LastRequest  *big.Int
	UpdatedAt    time.Time
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("session id is required")
	}
	if s.ModelID != nil && s.ModelID.Sign() < 0 {
		return fmt.Errorf("model id must not be negative")
	}

	return nil
}

func (s Session) Context() (*ConversationContext, error) {
	return RestoreConversationContext(s.SystemPrompt, s.Messages)
}

func (s Session) Turns() int {
	turns := 0
	for _, message := range s.Messages {
		if message.Role == RoleUser {
			turns++
		}
	}
	return turns
}
