// Package prov provides the provenance Connection, the high-level surface
// through which stream operators, decorators, and query rewriters record
// and traverse data provenance. A Connection composes the deduplication
// engine, the graph cache, and a log-index strategy over the durable
// backend selected by configuration.
// See docs/ARCHITECTURE § Connection Orchestrator.
package prov

import (
	"fmt"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/lineage/internal/cache"
	"github.com/mesh-intelligence/lineage/internal/compress"
	"github.com/mesh-intelligence/lineage/internal/dedup"
	"github.com/mesh-intelligence/lineage/internal/noop"
	"github.com/mesh-intelligence/lineage/internal/sqlite"
	"github.com/mesh-intelligence/lineage/pkg/ident"
	"github.com/mesh-intelligence/lineage/pkg/types"
)

// Connection records and queries provenance for one resource. Instances
// are independent: the cache and event memo are per-Connection, so
// cross-process deduplication happens only at the durable layer.
type Connection struct {
	store    types.Store
	cache    *cache.Cache
	backend  *sqlite.Backend // nil for the noop backend
	engine   *dedup.Engine
	codec    *ident.Codec
	resource string
	log      *logrus.Logger

	agentKey string // storage key of the current user's agent node
}

// Open validates the config, attaches the selected backend, layers the
// configured strategy and the graph cache over it, and records the current
// user's agent node. A nil logger selects the standard logger.
func Open(cfg types.Config, log *logrus.Logger) (*Connection, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		cfg.Namespace = types.DefaultNamespace
	}
	if cfg.Resource == "" {
		cfg.Resource = newResourceID()
	}

	var (
		strategy types.Store
		backend  *sqlite.Backend
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		backend = sqlite.NewBackend()
		if err := backend.Attach(cfg); err != nil {
			return nil, fmt.Errorf("attaching sqlite backend: %w", err)
		}
		switch cfg.Strategy {
		case types.StrategyBatched:
			strategy = sqlite.NewBatched(backend, cfg.MaxElements)
		case types.StrategyCompressed:
			strategy = compress.New(sqlite.NewBatched(backend, cfg.MaxElements))
		default:
			strategy = sqlite.NewDirect(backend)
		}
	case types.BackendNoop:
		strategy = noop.New(log)
	}

	c := cache.New(strategy, cache.Options{
		TTL:        time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheSize,
		PendingMax: cfg.PendingMax,
	})
	if err := c.CreateTables(); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	conn := &Connection{
		store:    c,
		cache:    c,
		backend:  backend,
		engine:   dedup.NewEngine(c, cfg.Resource),
		codec:    ident.NewCodec(cfg.Namespace),
		resource: cfg.Resource,
		log:      log,
	}

	if err := conn.recordAgent(); err != nil {
		return nil, fmt.Errorf("recording agent: %w", err)
	}
	return conn, nil
}

// OpenOrDegraded opens a Connection, falling back to the no-op backend
// when the configured backend cannot be established. The failure is
// logged and the calling pipeline proceeds in log-only mode instead of
// crashing.
func OpenOrDegraded(cfg types.Config, log *logrus.Logger) *Connection {
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, err := Open(cfg, log)
	if err == nil {
		return conn
	}
	log.WithError(err).Warn("provenance backend unavailable, continuing without persistence")

	cfg.Backend = types.BackendNoop
	conn, err = Open(cfg, log)
	if err != nil {
		// The noop path has no external dependencies; reaching this
		// means the config itself is invalid.
		log.WithError(err).Error("degraded provenance connection failed")
		return nil
	}
	return conn
}

// recordAgent stores the AGENT node for the current OS user. Every
// activity recorded through this connection is associated with it.
func (c *Connection) recordAgent() error {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	c.agentKey = c.localKey("a_" + name)
	_, err := c.engine.CreateBaseEvent(dedup.NodeEvent(c.agentKey, types.LabelAgent))
	return err
}

// Resource returns the resource this connection records into.
func (c *Connection) Resource() string { return c.resource }

// Clear removes every node, edge, property, and schema row of the
// connection's resource.
func (c *Connection) Clear() error {
	return c.store.ClearTables(c.resource)
}

// Flush forces pending writes down to the durable layer.
func (c *Connection) Flush() error {
	return c.store.Flush()
}

// Close flushes and releases the connection. No further use is permitted.
func (c *Connection) Close() error {
	if err := c.cache.Close(); err != nil {
		return err
	}
	if c.backend != nil {
		return c.backend.Detach()
	}
	return nil
}

// localKey derives the storage key for a raw logical name: the qualified
// name's local part, which hashes over-long names.
func (c *Connection) localKey(raw string) string {
	key, err := c.codec.LocalPart(c.codec.Qualify(raw))
	if err != nil {
		// Qualify output always parses; this is unreachable.
		return raw
	}
	return key
}

func newResourceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
