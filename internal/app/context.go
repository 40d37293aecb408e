// Package app holds the state shared by the command line commands: the
// loaded settings, build metadata and the lazily opened datastore.
package app

import (
	"sync"

	"github.com/lexicone42/setbreak-sub000/internal/buildinfo"
	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
)

// Context is created before flags are parsed. Settings is filled in by the
// root command once configuration is loaded.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	mu    sync.Mutex
	store datastore.Interface
}

// New creates a context for the given build.
func New(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Store opens the configured datastore on first use and returns it.
func (c *Context) Store() (datastore.Interface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	settings := c.Settings
	if settings == nil {
		settings = conf.Defaults()
	}
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// Close closes the datastore if it was opened.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
