// Package sqlite provides the public API for the SQLite provenance backend.
// This package exposes the factory functions for creating SQLite-backed
// stores while keeping implementation details internal.
//
// See docs/ARCHITECTURE § Public API.
package sqlite

import (
	"github.com/mesh-intelligence/lineage/internal/sqlite"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

// Backend is the SQLite storage backend. It is not attached until Attach
// is called with a Config.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".lineage-db",
//	})
//	defer backend.Detach()
func NewBackend() *Backend {
	return sqlite.NewBackend()
}

// NewStore creates a log-index store over an attached backend according
// to the configured strategy. An empty strategy selects direct writes.
func NewStore(b *Backend, config types.Config) (types.Store, error) {
	switch config.Strategy {
	case types.StrategyDirect, "":
		return sqlite.NewDirect(b), nil
	case types.StrategyBatched:
		return sqlite.NewBatched(b, config.MaxElements), nil
	default:
		return nil, types.ErrStrategyUnknown
	}
}
