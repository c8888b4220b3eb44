package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

// dbFileName is the SQLite database file created inside DataDir.
const dbFileName = "lineage.db"

// Backend owns the SQLite connection and the raw row operations the
// log-index strategies write through. It does not itself implement the
// Store contract; NewDirect and NewBatched wrap it.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	// nodeSeq is the monotonic creation sequence for nodes, seeded from
	// the database at Attach so restarts keep it monotonic.
	nodeSeq atomic.Int64
}

// NewBackend creates a new SQLite backend instance. The backend is not
// attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database under config.DataDir and applies
// the schema. Returns ErrAlreadyAttached if called while attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return err
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating indexes: %w", err)
		}
	}

	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(created_seq) FROM nodes").Scan(&maxSeq); err != nil {
		db.Close()
		return fmt.Errorf("seeding node sequence: %w", err)
	}
	b.nodeSeq.Store(maxSeq.Int64)

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the SQLite connection. Idempotent: multiple calls succeed.
// After Detach, operations return ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// conn returns the live database handle, or ErrStoreDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.db, nil
}

// nextNodeSeq allocates the next node creation sequence number.
func (b *Backend) nextNodeSeq() int64 {
	return b.nodeSeq.Add(1)
}

// createTables re-applies the schema DDL. Safe to call on an attached
// backend because every statement is IF NOT EXISTS.
func (b *Backend) createTables() error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// clearTables removes every row belonging to the resource, resetting its
// graph to empty. Other resources in the same database are untouched.
func (b *Backend) clearTables(resource string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range clearTableNames {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE resource = ?", resource); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}
