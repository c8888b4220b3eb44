package sqlite

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

var _ types.Store = (*Batched)(nil)

// batchedFlushes counts bulk flushes across all batched stores.
var batchedFlushes = metrics.NewCounter("lineage_batched_flushes_total")

// Batched is the log-index strategy that accumulates writes into per-kind
// pools and persists them with bulk multi-row inserts. Pools have set
// semantics: duplicate inserts collapse before reaching storage. A pool
// exceeding maxElements forces a flush, as does any read.
type Batched struct {
	backend     *Backend
	maxElements int

	mu        sync.Mutex
	nodePool  map[types.Node]struct{}
	edgePool  map[types.Edge]struct{}
	propPool  map[propPoolKey]propRow
	nodeOrder []types.Node
	edgeOrder []types.Edge
	propOrder []propPoolKey
}

// propPoolKey is the set-semantics identity of a pooled property row.
type propPoolKey struct {
	resource string
	key      string
	label    string
	index    int
}

// NewBatched returns a batched strategy over an attached backend.
// maxElements <= 0 selects the default threshold.
func NewBatched(b *Backend, maxElements int) *Batched {
	if maxElements <= 0 {
		maxElements = types.DefaultMaxElements
	}
	s := &Batched{
		backend:     b,
		maxElements: maxElements,
	}
	s.resetPools()
	return s
}

func (s *Batched) resetPools() {
	s.nodePool = make(map[types.Node]struct{})
	s.edgePool = make(map[types.Edge]struct{})
	s.propPool = make(map[propPoolKey]propRow)
	s.nodeOrder = nil
	s.edgeOrder = nil
	s.propOrder = nil
}

func (s *Batched) CreateTables() error {
	return s.backend.createTables()
}

// ClearTables drops the pools along with the stored rows; pending writes
// for a cleared resource must not survive the reset.
func (s *Batched) ClearTables(resource string) error {
	s.mu.Lock()
	s.resetPools()
	s.mu.Unlock()
	return s.backend.clearTables(resource)
}

func (s *Batched) AddNode(resource, key, label string) error {
	s.mu.Lock()
	row := types.Node{Resource: resource, Key: key, Label: label}
	if _, seen := s.nodePool[row]; !seen {
		s.nodePool[row] = struct{}{}
		s.nodeOrder = append(s.nodeOrder, row)
	}
	overflow := len(s.nodePool) > s.maxElements
	s.mu.Unlock()

	if overflow {
		return s.Flush()
	}
	return nil
}

func (s *Batched) AddEdge(resource, from, to, label string) error {
	s.mu.Lock()
	row := types.Edge{Resource: resource, FromKey: from, ToKey: to, Label: label}
	if _, seen := s.edgePool[row]; !seen {
		s.edgePool[row] = struct{}{}
		s.edgeOrder = append(s.edgeOrder, row)
	}
	overflow := len(s.edgePool) > s.maxElements
	s.mu.Unlock()

	if overflow {
		return s.Flush()
	}
	return nil
}

func (s *Batched) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	s.mu.Lock()
	pk := propPoolKey{resource: resource, key: key, label: label, index: index}
	if _, seen := s.propPool[pk]; !seen {
		s.propPool[pk] = propRow{resource: resource, key: key, label: label, index: index, value: value}
		s.propOrder = append(s.propOrder, pk)
	}
	overflow := len(s.propPool) > s.maxElements
	s.mu.Unlock()

	if overflow {
		return s.Flush()
	}
	return nil
}

// AddSchema writes through immediately; schema rows are rare and never
// worth pooling.
func (s *Batched) AddSchema(resource, key, name, value string) error {
	return s.backend.insertSchema(resource, key, name, value)
}

// Flush drains all pools in one transaction, nodes before edges before
// properties so referencing rows never land ahead of their targets.
func (s *Batched) Flush() error {
	s.mu.Lock()
	nodes := s.nodeOrder
	edges := s.edgeOrder
	propKeys := s.propOrder
	props := make([]propRow, 0, len(propKeys))
	for _, pk := range propKeys {
		props = append(props, s.propPool[pk])
	}
	s.resetPools()
	s.mu.Unlock()

	if len(nodes) == 0 && len(edges) == 0 && len(props) == 0 {
		return nil
	}

	db, err := s.backend.conn()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning flush transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.backend.bulkInsertNodes(tx, nodes); err != nil {
		return err
	}
	if err := s.backend.bulkInsertEdges(tx, edges); err != nil {
		return err
	}
	if err := s.backend.bulkInsertProps(tx, props); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing flush: %w", err)
	}
	batchedFlushes.Inc()
	return nil
}

// Reads flush first so they never miss pooled writes.

func (s *Batched) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s.backend.getProvenanceData(resource, key)
}

func (s *Batched) GetConnectedTo(resource, key, label string) ([]string, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s.backend.getConnectedTo(resource, key, label)
}

func (s *Batched) GetConnectedFrom(resource, key, label string) ([]string, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s.backend.getConnectedFrom(resource, key, label)
}

func (s *Batched) GetSchema(resource, name string) (string, error) {
	if err := s.Flush(); err != nil {
		return "", err
	}
	return s.backend.getSchema(resource, name)
}
