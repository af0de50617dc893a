// Package file keeps private keys in a single TOML keyring readable only by the owner.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/pelletier/go-toml/v2"
)

const (
	keyringFileName = "keys.toml"
	keyringVersion  = 1
	storeDirMode    = 0o700
	keyringFileMode = 0o600
)

type keyringFile struct {
	Version int               `toml:"version"`
	Keys    map[string]string `toml:"keys"`
}

type Store struct {
	path string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{path: filepath.Join(filepath.Clean(root), keyringFileName)}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(ctx context.Context, ref string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ref, err := normalizeRef(ref)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("private key for %q is empty", ref)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyring, err := s.load()
	if err != nil {
		return err
	}
	keyring.Keys[ref] = value

	return s.write(keyring)
}

func (s *Store) Get(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref, err := normalizeRef(ref)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keyring, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := keyring.Keys[ref]
	if !ok {
		return "", fmt.Errorf("keyring entry %q: %w", ref, domain.ErrKeyNotFound)
	}

	return value, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ref, err := normalizeRef(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyring, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keyring.Keys[ref]; !ok {
		return nil
	}
	delete(keyring.Keys, ref)

	return s.write(keyring)
}

// Refs lists the stored key references in lexical order.
func (s *Store) Refs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keyring, err := s.load()
	if err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(keyring.Keys))
	for ref := range keyring.Keys {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	return refs, nil
}

func (s *Store) load() (keyringFile, error) {
	keyring := keyringFile{Version: keyringVersion, Keys: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return keyring, nil
		}
		return keyringFile{}, fmt.Errorf("read keyring: %w", err)
	}

	if err := toml.Unmarshal(data, &keyring); err != nil {
		return keyringFile{}, fmt.Errorf("decode keyring: %w", err)
	}
	if keyring.Version != keyringVersion {
		return keyringFile{}, fmt.Errorf("unsupported keyring version %d", keyring.Version)
	}
	if keyring.Keys == nil {
		keyring.Keys = map[string]string{}
	}

	return keyring, nil
}

func (s *Store) write(keyring keyringFile) error {
	keyring.Version = keyringVersion

	data, err := toml.Marshal(keyring)
	if err != nil {
		return fmt.Errorf("encode keyring: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create keyring directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".keys-*.toml")
	if err != nil {
		return fmt.Errorf("create temp keyring: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := tmp.Chmod(keyringFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp keyring: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp keyring: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp keyring: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace keyring: %w", err)
	}

	return nil
}

func normalizeRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", errors.New("key reference is empty")
	}
	if strings.ContainsAny(trimmed, "\n\r") {
		return "", fmt.Errorf("invalid key reference %q", ref)
	}

	return trimmed, nil
}
