package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

// SessionService persists conversation transcripts between CLI invocations.
type SessionService struct {
	repo  ports.SessionRepository
	clock ports.Clock
}

func NewSessionService(repo ports.SessionRepository, clock ports.Clock) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionService{repo: repo, clock: clock}
}

// Open returns the stored session or a fresh one. The system prompt only
// applies to sessions that have no transcript yet.
func (s *SessionService) Open(ctx context.Context, id domain.SessionID, systemPrompt string, modelID *big.Int) (domain.Session, *domain.ConversationContext, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, nil, fmt.Errorf("get session by id: %w", err)
		}
		session = domain.Session{ID: id, ModelID: modelID, SystemPrompt: systemPrompt}
	}

	if len(session.Messages) == 0 && systemPrompt != "" {
		session.SystemPrompt = systemPrompt
	}
	if session.ModelID == nil {
		session.ModelID = modelID
	}

	conversation, err := session.Context()
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	return session, conversation, nil
}

func (s *SessionService) Record(ctx context.Context, session domain.Session, conversation *domain.ConversationContext, lastTx common.Hash, requestID *big.Int) error {
	session.Messages = conversation.Snapshot()
	session.SystemPrompt = conversation.SystemPrompt()
	switch {
	case lastTx != (common.Hash{}) && lastTx != session.LastTxHash:
		// A new transaction never inherits the previous request id.
		session.LastTxHash = lastTx
		session.LastRequest = requestID
	case requestID != nil:
		session.LastRequest = requestID
	}
	session.UpdatedAt = s.clock.Now()

	if err := session.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *SessionService) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session by id: %w", err)
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Reset drops the transcript but keeps the session's model and system prompt.
func (s *SessionService) Reset(ctx context.Context, id domain.SessionID) error {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get session by id: %w", err)
	}

	session.Messages = nil
	session.LastTxHash = common.Hash{}
	session.LastRequest = nil
	session.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionService) Delete(ctx context.Context, id domain.SessionID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
