package file_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/storage"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/file"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/storagetest"
)

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := file.NewStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := file.NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "community/7", []byte(`{"events":[]}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "community%2F7.json", entries[0].Name())
}

func TestNewStore_RequiresDirectory(t *testing.T) {
	_, err := file.NewStore("")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
