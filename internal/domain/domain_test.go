package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationSerializeOneLinePerMessage(t *testing.T) {
	c := NewConversationContext("Be brief")
	c.AppendUser("I am harvey")
	c.AppendAssistant("Hello harvey")
	c.AppendUser("Whats my name")

	serialized := c.Serialize()
	lines := strings.Split(serialized, "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, []string{
		"system: Be brief",
		"user: I am harvey",
		"assistant: Hello harvey",
		"user: Whats my name",
	}, lines)
}

func TestConversationInstallsSystemPromptOnce(t *testing.T) {
	c := NewConversationContext("")
	c.AppendUser("one")
	c.AppendUser("two")
	c.AppendUser("three")

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 4)
	assert.Equal(t, Message{Role: RoleSystem, Content: DefaultSystemPrompt}, snapshot[0])

	systemCount := 0
	for _, message := range snapshot {
		if message.Role == RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
}

func TestConversationAppendSystemIfEmptyIsIdempotent(t *testing.T) {
	c := NewConversationContext("first")

	assert.True(t, c.AppendSystemIfEmpty("override"))
	assert.False(t, c.AppendSystemIfEmpty("ignored"))
	assert.Equal(t, "system: override", c.Serialize())
}

func TestConversationAssistantRoundTripThroughSnapshot(t *testing.T) {
	c := NewConversationContext("sys")
	c.AppendUser("hi")
	c.AppendAssistant("decoded reply")

	snapshot := c.Snapshot()
	require.NotEmpty(t, snapshot)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "decoded reply"}, snapshot[len(snapshot)-1])
}

func TestConversationSnapshotIsACopy(t *testing.T) {
	c := NewConversationContext("sys")
	c.AppendUser("hi")

	snapshot := c.Snapshot()
	snapshot[1].Content = "tampered"

	assert.Equal(t, "hi", c.Snapshot()[1].Content)
}

func TestRestoreConversationContext(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		wantErr  string
	}{
		{name: "empty transcript", messages: nil},
		{name: "valid transcript", messages: []Message{
			{Role: RoleSystem, Content: "persisted"},
			{Role: RoleUser, Content: "hi"},
		}},
		{name: "missing system head", messages: []Message{{Role: RoleUser, Content: "hi"}}, wantErr: "first message role"},
		{name: "duplicate system", messages: []Message{
			{Role: RoleSystem, Content: "a"},
			{Role: RoleSystem, Content: "b"},
		}, wantErr: "more than once"},
		{name: "unknown role", messages: []Message{
			{Role: RoleSystem, Content: "a"},
			{Role: Role("tool"), Content: "b"},
		}, wantErr: "unsupported role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := RestoreConversationContext("fallback", tt.messages)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.messages), c.Len())
		})
	}
}

func TestRestoredContextDoesNotReinstallSystemPrompt(t *testing.T) {
	c, err := RestoreConversationContext("fallback", []Message{
		{Role: RoleSystem, Content: "persisted"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)

	c.AppendUser("again")

	assert.Equal(t, "system: persisted\nuser: hi\nassistant: hello\nuser: again", c.Serialize())
	assert.Equal(t, "persisted", c.SystemPrompt())
}

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "hex payload", raw: "0x68656c6c6f", want: "hello"},
		{name: "upper prefix passthrough", raw: "0X68656c6c6f", want: "0X68656c6c6f"},
		{name: "plain passthrough", raw: "hello", want: "hello"},
		{name: "empty passthrough", raw: "", want: ""},
		{name: "empty hex", raw: "0x", want: ""},
		{name: "invalid hex", raw: "0xzz", wantErr: true},
		{name: "odd length hex", raw: "0x686", wantErr: true},
		{name: "invalid utf8", raw: "0xff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeOutput(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("submit: %w", TransactionFailedError("error sending AI request", cause))

	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.NotErrorIs(t, err, ErrContractInteraction)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindTransactionFailed, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
	assert.Equal(t, "transaction_failed: error sending AI request: dial tcp: connection refused", errors.Unwrap(err).Error())
}

func TestErrorSentinelMessage(t *testing.T) {
	assert.Equal(t, "configuration error", ErrConfiguration.Error())
	assert.Equal(t, "invalid_response: bad", InvalidResponseError("bad", nil).Error())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, role)

	_, err = ParseRole("tool")
	require.Error(t, err)
}

func TestSessionValidateAndTurns(t *testing.T) {
	s := Session{
		ID:      "s1",
		ModelID: big.NewInt(11),
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "a"},
			{Role: RoleAssistant, Content: "b"},
			{Role: RoleUser, Content: "c"},
		},
	}

	require.NoError(t, s.Validate())
	assert.Equal(t, 2, s.Turns())

	assert.Error(t, Session{}.Validate())
	assert.Error(t, Session{ID: "x", ModelID: big.NewInt(-1)}.Validate())
}

func TestTxStatusTerminal(t *testing.T) {
	assert.False(t, TxStatusPending.Terminal())
	assert.True(t, TxStatusConfirmed.Terminal())
	assert.True(t, TxStatusFailed.Terminal())
}
