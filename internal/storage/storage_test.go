package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, KeyTheme, "dark"))
	v, err := m.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	require.NoError(t, m.Delete(ctx, KeyTheme))
	_, err = m.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f := NewFile(dir)
	require.NoError(t, f.Set(ctx, KeyTheme, "dark"))
	require.NoError(t, f.Set(ctx, KeyAOIs, `[]`))

	reopened := NewFile(dir)
	v, err := reopened.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	require.NoError(t, reopened.Delete(ctx, KeyTheme))
	_, err = NewFile(dir).Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_MalformedStartsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store.json"), []byte("{not json"), 0644))

	f := NewFile(dir)
	_, err := f.Get(ctx, KeyAOIs)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.Set(ctx, KeyAOIs, "[]"))
	v, err := NewFile(dir).Get(ctx, KeyAOIs)
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestFile_DeleteMissingKey(t *testing.T) {
	f := NewFile(t.TempDir())
	require.NoError(t, f.Delete(context.Background(), "nope"))
	_, err := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err), "deleting a missing key must not write the file")
}
