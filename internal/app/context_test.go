package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/buildinfo"
	"github.com/lexicone42/setbreak-sub000/internal/conf"
)

func TestStoreOpensOnce(t *testing.T) {
	t.Parallel()
	settings := conf.Defaults()
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "app.db")

	c := New(&buildinfo.Context{Version: "test"})
	c.Settings = settings

	first, err := c.Store()
	require.NoError(t, err)
	second, err := c.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats, err := first.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTracks)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "closing twice is a no-op")
}

func TestStoreBadBackend(t *testing.T) {
	t.Parallel()
	settings := conf.Defaults()
	settings.Database.Type = "postgres"

	c := New(nil)
	c.Settings = settings
	_, err := c.Store()
	require.Error(t, err)
	assert.NoError(t, c.Close())
}
