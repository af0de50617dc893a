package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// Big integers are stored as decimal strings since TOML integers are 64-bit.
type sessionSchema struct {
	ID            string          `toml:"id"`
	ModelID       string          `toml:"model_id,omitempty"`
	SystemPrompt  string          `toml:"system_prompt"`
	LastTxHash    string          `toml:"last_tx_hash,omitempty"`
	LastRequestID string          `toml:"last_request_id,omitempty"`
	UpdatedAt     string          `toml:"updated_at,omitempty"`
	Messages      []messageSchema `toml:"messages,omitempty"`
}

type messageSchema struct {
	Role    string `toml:"role"`
	Content string `toml:"content"`
}
