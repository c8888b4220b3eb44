// Shared helpers for lineage CLI commands.
// See docs/ARCHITECTURE § CLI.
package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/lineage/pkg/prov"
	"github.com/mesh-intelligence/lineage/pkg/sqlite"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

// cliTypesConfig assembles the storage Config from the resolved data
// directory, loaded config.yaml values, and flags. Flags win.
func cliTypesConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.DefaultConfig()
	cfg.Backend = cliConfig.GetString(cfgKeyBackend)
	cfg.DataDir = dataDir
	cfg.Strategy = cliConfig.GetString(cfgKeyStrategy)
	cfg.Resource = cliConfig.GetString(cfgKeyResource)
	cfg.Namespace = cliConfig.GetString(cfgKeyNamespace)
	if flagResource != "" {
		cfg.Resource = flagResource
	}
	return cfg, nil
}

// openConnection opens a provenance connection for the current CLI
// invocation. The caller must defer conn.Close().
func openConnection() (*prov.Connection, error) {
	cfg, err := cliTypesConfig()
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	conn, err := prov.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	return conn, nil
}

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach(). Used by commands
// that only need the raw store, not the full connection.
func attachBackend() (*sqlite.Backend, error) {
	cfg, err := cliTypesConfig()
	if err != nil {
		return nil, err
	}
	cfg.Backend = types.BackendSQLite

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}
