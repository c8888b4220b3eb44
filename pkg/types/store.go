package types

import "errors"

// Store is the uniform contract for provenance log-index strategies. The
// direct, batched, and compressing strategies, the graph cache, and the
// no-op fallback all implement it, so callers can layer them freely.
//
// Node, edge, and property creation is idempotent: inserting a row that
// already exists is a no-op, never an error. A duplicate-key condition at
// the durable layer is the mechanism for "create if absent", not a failure.
type Store interface {
	// CreateTables creates the durable relations if they do not exist.
	CreateTables() error

	// ClearTables removes every node, edge, property, and schema row
	// belonging to the given resource.
	ClearTables(resource string) error

	// AddNode records the node (resource, key) with the given label.
	AddNode(resource, key, label string) error

	// AddEdge records a directed edge from -> to with the given label.
	// Repeated calls with the same (resource, from, to, label) leave
	// exactly one edge row.
	AddEdge(resource, from, to, label string) error

	// AddNodeProp records a property on node (resource, key). index scopes
	// multi-valued properties under one label; pass NoIndex for single-valued
	// properties.
	AddNodeProp(resource, key, label string, value Value, index int) error

	// AddSchema records a named schema entry for the resource. The pair
	// (resource, name) is unique; repeated writes are ignored.
	AddSchema(resource, key, name, value string) error

	// Flush forces any pending writes to the durable layer. Strategies
	// that write immediately treat it as a no-op.
	Flush() error

	// GetProvenanceData returns the full typed property map for a node,
	// decoded from the stored type codes back into Values.
	GetProvenanceData(resource, key string) (map[string]Value, error)

	// GetConnectedTo returns the keys of nodes with an edge pointing at
	// key, filtered by edge label; an empty label matches all labels.
	GetConnectedTo(resource, key, label string) ([]string, error)

	// GetConnectedFrom returns the keys of nodes that key points at,
	// filtered by edge label; an empty label matches all labels.
	GetConnectedFrom(resource, key, label string) ([]string, error)

	// GetSchema returns the schema value stored for (resource, name).
	// Returns ErrNotFound if no schema entry exists.
	GetSchema(resource, name string) (string, error)
}

// NoIndex marks a property that is single-valued under its label.
const NoIndex = -1

// Store lifecycle and lookup errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrNotFound        = errors.New("not found")
	ErrCacheClosed     = errors.New("cache is closed")
)
