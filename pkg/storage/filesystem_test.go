package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStreamReturnsPublicPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	public, err := store.SaveStream("profile/avatar.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/profile/avatar.png", public)

	data, err := os.ReadFile(filepath.Join(dir, "profile", "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	onDisk, err := store.Path(public)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "profile", "avatar.png"), onDisk)
}

func TestDeleteIgnoresMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "uploads")
	require.NoError(t, err)

	public, err := store.SaveStream("resume.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(public))
	require.NoError(t, store.Delete(public))

	_, err = store.Path(public)
	require.NoError(t, err)
}

func TestRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "uploads")
	require.NoError(t, err)

	_, err = store.SaveStream("../escape.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	err = store.Delete("uploads/../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
