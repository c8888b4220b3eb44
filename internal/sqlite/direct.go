package sqlite

import "github.com/mesh-intelligence/lineage/pkg/types"

// Compile-time interface check: Direct must implement Store.
var _ types.Store = (*Direct)(nil)

// Direct is the log-index strategy that issues one upsert per call. Reads
// always see the latest state; every write pays a storage round-trip.
type Direct struct {
	backend *Backend
}

// NewDirect returns a direct strategy over an attached backend.
func NewDirect(b *Backend) *Direct {
	return &Direct{backend: b}
}

func (d *Direct) CreateTables() error {
	return d.backend.createTables()
}

func (d *Direct) ClearTables(resource string) error {
	return d.backend.clearTables(resource)
}

func (d *Direct) AddNode(resource, key, label string) error {
	return d.backend.insertNode(resource, key, label)
}

func (d *Direct) AddEdge(resource, from, to, label string) error {
	return d.backend.insertEdge(resource, from, to, label)
}

func (d *Direct) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	return d.backend.insertNodeProp(resource, key, label, value, index)
}

func (d *Direct) AddSchema(resource, key, name, value string) error {
	return d.backend.insertSchema(resource, key, name, value)
}

// Flush is a no-op; the direct strategy never buffers.
func (d *Direct) Flush() error { return nil }

func (d *Direct) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	return d.backend.getProvenanceData(resource, key)
}

func (d *Direct) GetConnectedTo(resource, key, label string) ([]string, error) {
	return d.backend.getConnectedTo(resource, key, label)
}

func (d *Direct) GetConnectedFrom(resource, key, label string) ([]string, error) {
	return d.backend.getConnectedFrom(resource, key, label)
}

func (d *Direct) GetSchema(resource, name string) (string, error) {
	return d.backend.getSchema(resource, name)
}
