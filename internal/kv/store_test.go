package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/kv"
)

func storesUnderTest(t *testing.T) map[string]kv.Store {
	t.Helper()

	fileStore, err := kv.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err, "creating the file store failed")

	return map[string]kv.Store{
		"memory": kv.NewMemoryStore(),
		"file":   fileStore,
	}
}

func Test_Store_Get_When_KeyIsMissing(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), kv.KeyEvents)

			assert.ErrorIs(t, err, kv.ErrKeyNotFound)
		})
	}
}

func Test_Store_SetGetDelete_Roundtrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, kv.KeyEvents, []byte(`[{"id":"a"}]`)))
			require.NoError(t, store.Set(ctx, kv.KeyEvents, []byte(`[{"id":"b"}]`)))

			got, err := store.Get(ctx, kv.KeyEvents)
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"b"}]`, string(got), "last write should win")

			require.NoError(t, store.Delete(ctx, kv.KeyEvents))
			_, err = store.Get(ctx, kv.KeyEvents)
			assert.ErrorIs(t, err, kv.ErrKeyNotFound)

			assert.NoError(t, store.Delete(ctx, kv.KeyEvents), "deleting a missing key is not an error")
		})
	}
}

func Test_Store_Rejects_InvalidKeys(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, key := range []string{"", "../etc/passwd", "Events", "a b"} {
				assert.ErrorIs(t, store.Set(ctx, key, []byte("1")), kv.ErrInvalidKey, "key %q", key)
				_, err := store.Get(ctx, key)
				assert.ErrorIs(t, err, kv.ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func Test_Bool_Flags(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	loaded, err := kv.GetBool(ctx, store, kv.KeyDemoEventsLoaded)
	require.NoError(t, err)
	assert.False(t, loaded, "a missing flag reads as false")

	require.NoError(t, kv.SetBool(ctx, store, kv.KeyDemoEventsLoaded, true))
	loaded, err = kv.GetBool(ctx, store, kv.KeyDemoEventsLoaded)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func Test_MemoryStore_Returns_Copies(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	value := []byte(`"x"`)

	require.NoError(t, store.Set(ctx, "k", value))
	value[1] = 'y'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(got))
}

func Test_FileStore_Writes_PrivateFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := kv.NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, kv.KeyCurrentUser, []byte(`{"id":"user-1"}`)))

	info, err := os.Stat(filepath.Join(dir, kv.KeyCurrentUser+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func Test_NewFileStore_When_DirIsEmpty(t *testing.T) {
	_, err := kv.NewFileStore("", nil)

	assert.Error(t, err)
}
