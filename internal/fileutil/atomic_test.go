package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_ReplacesContents(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644)) //nolint:gosec // G306: test file
	require.NoError(t, WriteAtomic(target, []byte("new"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteAtomic_NoTempFilesLeft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, WriteAtomic(filepath.Join(dir, "a.json"), []byte("{}"), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestWriteAtomic_FailureKeepsOriginal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "wallet.json")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o600))

	require.NoError(t, os.Chmod(dir, 0o500)) //nolint:gosec // G302: intentionally restrictive
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) }) //nolint:gosec // G302: restoring perms

	require.Error(t, WriteAtomic(target, []byte("replacement"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWriteAtomic_EmptyPath(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, WriteAtomic("", []byte("x"), 0o600), ErrEmptyPath)
}

func TestEnsurePrivateDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsurePrivateDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, PrivateDirPerm, info.Mode().Perm())

	require.ErrorIs(t, EnsurePrivateDir(""), ErrEmptyPath)
}

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gone.json")
	require.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.True(t, Exists(path))
	require.NoError(t, RemoveIfExists(path))
	assert.False(t, Exists(path))
}
