package config

import (
	"context"
	"fmt"

	"github.com/goliatone/go-content/pkg/state"
)

// OpenStore opens the snapshot store selected by the configuration. The
// returned close function is never nil.
func (c *Config) OpenStore(ctx context.Context) (state.Store[[]byte], func() error, error) {
	noop := func() error { return nil }
	switch c.Storage.Driver {
	case DriverMemory:
		return state.NewMemoryStore[[]byte](), noop, nil
	case DriverFile:
		store, err := state.NewFileStore(c.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case DriverSQLite:
		store, err := state.OpenSQLiteStore(ctx, c.Storage.Path)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
}
