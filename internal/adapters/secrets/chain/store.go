// Package chain combines a primary and a fallback key store.
package chain

import (
	"context"
	"errors"
	"fmt"
	"io"

	filestore "github.com/bnema/ethai-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/ethai-cli/internal/adapters/secrets/pass"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/sirupsen/logrus"
)

type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
	log      logrus.FieldLogger
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary key store is nil")
	errNilFallbackStore = errors.New("fallback key store is nil")
)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) *Store {
	store, err := NewStoreChecked(primary, fallback, nil)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore, logger logrus.FieldLogger) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	return &Store{primary: primary, fallback: fallback, log: logger}, nil
}

// NewPassFirstWithFileFallback prefers the password-store and falls back to the
// TOML keyring under fileRoot.
func NewPassFirstWithFileFallback(passPrefix string, fileRoot string, logger logrus.FieldLogger) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot), logger)
}

func (s *Store) Put(ctx context.Context, ref string, value string) error {
	err := s.primary.Put(ctx, ref, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}
	s.log.WithError(err).WithField("ref", ref).Debug("primary key store put failed, using fallback")

	fallbackErr := s.fallback.Put(ctx, ref, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, ref string) (string, error) {
	value, err := s.primary.Get(ctx, ref)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}
	s.log.WithError(err).WithField("ref", ref).Debug("primary key store get failed, using fallback")

	fallbackValue, fallbackErr := s.fallback.Get(ctx, ref)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete removes ref from both backends so a removed key cannot resurface
// through the fallback.
func (s *Store) Delete(ctx context.Context, ref string) error {
	err := s.primary.Delete(ctx, ref)
	if shouldSkipFallback(err) {
		return err
	}
	fallbackErr := s.fallback.Delete(ctx, ref)

	err = ignoreNotFound(err)
	fallbackErr = ignoreNotFound(fallbackErr)

	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case err != nil && fallbackErr != nil:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	case errors.Is(err, passstore.ErrUnavailable):
		return nil
	case err != nil:
		return fmt.Errorf("primary backend delete failed: %w", err)
	default:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	}
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil
	}
	return err
}
