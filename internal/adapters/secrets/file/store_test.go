package file

import (
	"context"
	"os"
	"testing"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestStoreRejectsInvalidRefs(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		ref     string
		wantErr string
	}{
		{name: "empty", ref: "", wantErr: "key reference is empty"},
		{name: "whitespace", ref: "   ", wantErr: "key reference is empty"},
		{name: "multiline", ref: "a\nb", wantErr: "invalid key reference"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.ref, testKey)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ethai/keys/default", testKey+"\n"))
	require.NoError(t, store.Put(ctx, "ethai/keys/agent1", "aa"))

	got, err := store.Get(ctx, "ethai/keys/default")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	refs, err := store.Refs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethai/keys/agent1", "ethai/keys/default"}, refs)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyringFileMode), info.Mode().Perm())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
}

func TestStoreGetMissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewStore(t.TempDir()).Get(context.Background(), "ethai/keys/default")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreDeleteIsIdempotentWhenKeyMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "ethai/keys/default"))
	require.NoError(t, store.Put(ctx, "ethai/keys/default", testKey))
	require.NoError(t, store.Delete(ctx, "ethai/keys/default"))
	require.NoError(t, store.Delete(ctx, "ethai/keys/default"))

	_, err := store.Get(ctx, "ethai/keys/default")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("version = 9\n"), keyringFileMode))

	_, err := store.Get(context.Background(), "ethai/keys/default")
	assert.ErrorContains(t, err, "unsupported keyring version")
}
