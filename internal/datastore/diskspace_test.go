package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeSpace(t *testing.T) {
	free, err := freeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)
}

func TestFreeSpaceMissingPath(t *testing.T) {
	_, err := freeSpace(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestWarnLowDiskSpace(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, warnLowDiskSpace(dir, 0))
	assert.True(t, warnLowDiskSpace(dir, ^uint64(0)))
	assert.False(t, warnLowDiskSpace(filepath.Join(dir, "missing"), ^uint64(0)))
}
