package application

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"testing"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inMemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{sessions: map[domain.SessionID]domain.Session{}}
}

func (r *inMemorySessionRepo) GetByID(_ context.Context, id domain.SessionID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *inMemorySessionRepo) List(context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *inMemorySessionRepo) Save(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *inMemorySessionRepo) Delete(_ context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func TestSessionServiceOpenNewSession(t *testing.T) {
	t.Parallel()

	svc := NewSessionService(newInMemorySessionRepo(), newManualClock())

	session, conversation, err := svc.Open(context.Background(), "proj", "Be brief", big.NewInt(11))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("proj"), session.ID)
	assert.Equal(t, big.NewInt(11), session.ModelID)
	assert.Equal(t, "Be brief", conversation.SystemPrompt())
	assert.Equal(t, 0, conversation.Len())
}

func TestSessionServiceRecordAndResume(t *testing.T) {
	t.Parallel()

	repo := newInMemorySessionRepo()
	clock := newManualClock()
	svc := NewSessionService(repo, clock)
	ctx := context.Background()

	session, conversation, err := svc.Open(ctx, domain.DefaultSessionID, "", big.NewInt(11))
	require.NoError(t, err)
	conversation.AppendUser("I am harvey")
	conversation.AppendAssistant("Hello harvey")

	hash := common.HexToHash("0x0f")
	require.NoError(t, svc.Record(ctx, session, conversation, hash, big.NewInt(9)))

	stored, err := svc.Get(ctx, domain.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, hash, stored.LastTxHash)
	assert.Equal(t, big.NewInt(9), stored.LastRequest)
	assert.Equal(t, clock.Now(), stored.UpdatedAt)
	assert.Equal(t, 1, stored.Turns())

	_, resumed, err := svc.Open(ctx, domain.DefaultSessionID, "a different prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSystemPrompt, resumed.SystemPrompt())
	assert.Equal(t, conversation.Snapshot(), resumed.Snapshot())
}

func TestSessionServiceRecordNewTransactionClearsRequestID(t *testing.T) {
	t.Parallel()

	svc := NewSessionService(newInMemorySessionRepo(), newManualClock())
	ctx := context.Background()

	session, conversation, err := svc.Open(ctx, domain.DefaultSessionID, "", big.NewInt(11))
	require.NoError(t, err)
	conversation.AppendUser("first")
	first := common.HexToHash("0x0f")
	require.NoError(t, svc.Record(ctx, session, conversation, first, big.NewInt(7)))

	session, conversation, err = svc.Open(ctx, domain.DefaultSessionID, "", nil)
	require.NoError(t, err)
	conversation.AppendUser("second")
	second := common.HexToHash("0x10")
	require.NoError(t, svc.Record(ctx, session, conversation, second, nil))

	stored, err := svc.Get(ctx, domain.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, second, stored.LastTxHash)
	assert.Nil(t, stored.LastRequest)

	require.NoError(t, svc.Record(ctx, stored, conversation, second, big.NewInt(8)))
	stored, err = svc.Get(ctx, domain.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(8), stored.LastRequest)

	require.NoError(t, svc.Record(ctx, stored, conversation, second, nil))
	stored, err = svc.Get(ctx, domain.DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(8), stored.LastRequest)
}

func TestSessionServiceResetAndDelete(t *testing.T) {
	t.Parallel()

	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo, newManualClock())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.Session{
		ID:           "proj",
		ModelID:      big.NewInt(11),
		SystemPrompt: "Be brief",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Be brief"},
			{Role: domain.RoleUser, Content: "hi"},
		},
		LastTxHash: common.HexToHash("0x01"),
	}))

	require.NoError(t, svc.Reset(ctx, "proj"))
	session, err := svc.Get(ctx, "proj")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Equal(t, "Be brief", session.SystemPrompt)
	assert.Equal(t, common.Hash{}, session.LastTxHash)

	sessions, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, svc.Delete(ctx, "proj"))
	_, err = svc.Get(ctx, "proj")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Reset(ctx, "proj"), domain.ErrSessionNotFound)
}

func TestSessionServiceRejectsCorruptTranscript(t *testing.T) {
	t.Parallel()

	repo := newInMemorySessionRepo()
	require.NoError(t, repo.Save(context.Background(), domain.Session{
		ID:       "broken",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "no system"}},
	}))

	_, _, err := NewSessionService(repo, nil).Open(context.Background(), "broken", "", nil)
	require.Error(t, err)
}
