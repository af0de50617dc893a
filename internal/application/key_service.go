package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
)

const DefaultKeyRef = "ethai/keys/default"

// SignerFactory turns a hex-encoded private key into a signer.
type SignerFactory func(hexKey string) (ports.Signer, error)

type KeyService struct {
	store     ports.SecretStore
	newSigner SignerFactory
}

func NewKeyService(store ports.SecretStore, newSigner SignerFactory) *KeyService {
	return &KeyService{store: store, newSigner: newSigner}
}

// SetKey validates hexKey and stores it under ref, returning the account address.
func (s *KeyService) SetKey(ctx context.Context, ref string, hexKey string) (string, error) {
	ref = normalizeKeyRef(ref)
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

	signer, err := s.newSigner(hexKey)
	if err != nil {
		return "", domain.ConfigurationError("validate private key", err)
	}

	if err := s.store.Put(ctx, ref, hexKey); err != nil {
		return "", fmt.Errorf("store private key: %w", err)
	}

	return signer.Address().Hex(), nil
}

func (s *KeyService) RemoveKey(ctx context.Context, ref string) error {
	if err := s.store.Delete(ctx, normalizeKeyRef(ref)); err != nil {
		return fmt.Errorf("remove private key: %w", err)
	}
	return nil
}

// LoadSigner resolves ref to a signer. An empty ref uses the default key.
func (s *KeyService) LoadSigner(ctx context.Context, ref string) (ports.Signer, error) {
	ref = normalizeKeyRef(ref)

	hexKey, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, domain.ConfigurationError(fmt.Sprintf("load private key %q", ref), errors.Join(domain.ErrKeyNotFound, err))
	}

	signer, err := s.newSigner(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, domain.ConfigurationError(fmt.Sprintf("parse private key %q", ref), err)
	}

	return signer, nil
}

func normalizeKeyRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return DefaultKeyRef
	}
	return ref
}

func (s *KeyService) Address(ctx context.Context, ref string) (string, error) {
	signer, err := s.LoadSigner(ctx, ref)
	if err != nil {
		return "", err
	}
	return signer.Address().Hex(), nil
}
