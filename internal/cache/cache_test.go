package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

// countingStore is an in-memory Store that records the order of durable
// writes and counts read-through hits.
type countingStore struct {
	ops     []string
	flushes int
	reads   int

	props map[string]map[string]types.Value
	from  map[string][]string
	to    map[string][]string
}

var _ types.Store = (*countingStore)(nil)

func newCountingStore() *countingStore {
	return &countingStore{
		props: make(map[string]map[string]types.Value),
		from:  make(map[string][]string),
		to:    make(map[string][]string),
	}
}

func (s *countingStore) CreateTables() error { return nil }

func (s *countingStore) ClearTables(resource string) error {
	s.props = make(map[string]map[string]types.Value)
	s.from = make(map[string][]string)
	s.to = make(map[string][]string)
	return nil
}

func (s *countingStore) AddNode(resource, key, label string) error {
	s.ops = append(s.ops, "node:"+key)
	return nil
}

func (s *countingStore) AddEdge(resource, from, to, label string) error {
	s.ops = append(s.ops, "edge:"+from+">"+to)
	s.from[from+"|"+label] = append(s.from[from+"|"+label], to)
	s.to[to+"|"+label] = append(s.to[to+"|"+label], from)
	// The empty label matches all labels, like the durable backend.
	s.from[from+"|"] = append(s.from[from+"|"], to)
	s.to[to+"|"] = append(s.to[to+"|"], from)
	return nil
}

func (s *countingStore) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	s.ops = append(s.ops, "prop:"+key+"."+label)
	if s.props[key] == nil {
		s.props[key] = make(map[string]types.Value)
	}
	s.props[key][label] = value
	return nil
}

func (s *countingStore) AddSchema(resource, key, name, value string) error {
	s.ops = append(s.ops, "schema:"+name)
	return nil
}

func (s *countingStore) Flush() error {
	s.flushes++
	return nil
}

func (s *countingStore) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	s.reads++
	props := make(map[string]types.Value, len(s.props[key]))
	for k, v := range s.props[key] {
		props[k] = v
	}
	return props, nil
}

func (s *countingStore) GetConnectedTo(resource, key, label string) ([]string, error) {
	s.reads++
	return append([]string(nil), s.to[key+"|"+label]...), nil
}

func (s *countingStore) GetConnectedFrom(resource, key, label string) ([]string, error) {
	s.reads++
	return append([]string(nil), s.from[key+"|"+label]...), nil
}

func (s *countingStore) GetSchema(resource, name string) (string, error) {
	return "", types.ErrNotFound
}

func (s *countingStore) countOps(prefix string) int {
	n := 0
	for _, op := range s.ops {
		if len(op) >= len(prefix) && op[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func newTestCache(store types.Store, ttl time.Duration) *Cache {
	return New(store, Options{TTL: ttl, PendingMax: 100})
}

func TestNodeWritesAreDeferred(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddNode("res", "k", types.LabelEntity); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if len(store.ops) != 0 {
		t.Fatalf("node write reached store before flush: %v", store.ops)
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := store.countOps("node:"); got != 1 {
		t.Errorf("durable node writes = %d, want 1", got)
	}
}

func TestRepeatedNodeWriteCollapses(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	for i := 0; i < 4; i++ {
		if err := c.AddNode("res", "k", types.LabelEntity); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := store.countOps("node:"); got != 1 {
		t.Errorf("durable node writes = %d, want 1", got)
	}
}

func TestEdgeWriteForcesFlushInOrder(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddNode("res", "a", types.LabelEntity); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := c.AddNode("res", "b", types.LabelCollection); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := c.AddEdge("res", "a", "b", types.EdgeWasDerivedFrom); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	// The edge write flushed everything, nodes first.
	want := []string{"node:a", "node:b", "edge:a>b"}
	if len(store.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", store.ops, want)
	}
	for i := range want {
		if store.ops[i] != want[i] {
			t.Errorf("op[%d] = %q, want %q", i, store.ops[i], want[i])
		}
	}
}

func TestReadAfterWriteSeesOwnEdges(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddEdge("res", "a", "b", types.EdgeUsed); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	got, err := c.GetConnectedFrom("res", "a", types.EdgeUsed)
	if err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("neighbors = %v, want [b]", got)
	}
}

func TestCachedAdjacencyUpdatedInPlace(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddEdge("res", "a", "b", types.EdgeHadMember); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	// Warm the adjacency list.
	if _, err := c.GetConnectedFrom("res", "a", types.EdgeHadMember); err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	readsAfterWarm := store.reads

	// The next edge appends to the warm cached list; the follow-up read is
	// a pure cache hit.
	if err := c.AddEdge("res", "a", "c", types.EdgeHadMember); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	got, err := c.GetConnectedFrom("res", "a", types.EdgeHadMember)
	if err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("neighbors = %v, want [b c]", got)
	}
	if store.reads != readsAfterWarm {
		t.Errorf("store reads = %d, want %d (cache hit expected)", store.reads, readsAfterWarm)
	}
}

func TestEdgeWriteDropsWarmUnfilteredLists(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddEdge("res", "a", "b", types.EdgeHadMember); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	// Warm the all-labels lists for both endpoints.
	if _, err := c.GetConnectedFrom("res", "a", ""); err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	if _, err := c.GetConnectedTo("res", "b", ""); err != nil {
		t.Fatalf("GetConnectedTo: %v", err)
	}

	// A new edge under a different label must show up in the unfiltered
	// queries too, not just under its own label.
	if err := c.AddEdge("res", "a", "c", types.EdgeUsed); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	got, err := c.GetConnectedFrom("res", "a", "")
	if err != nil {
		t.Fatalf("GetConnectedFrom unfiltered: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("unfiltered neighbors = %v, want [b c]", got)
	}

	if err := c.AddEdge("res", "d", "b", types.EdgeUsed); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	got, err = c.GetConnectedTo("res", "b", "")
	if err != nil {
		t.Fatalf("GetConnectedTo unfiltered: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Errorf("unfiltered incoming = %v, want [a d]", got)
	}
}

func TestPropertyWriteInvalidatesCachedMap(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddNodeProp("res", "k", "name", types.StringValue("v1"), types.NoIndex); err != nil {
		t.Fatalf("AddNodeProp: %v", err)
	}
	props, err := c.GetProvenanceData("res", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if props["name"].Text() != "v1" {
		t.Fatalf("props = %v", props)
	}

	// A second property drops the cached map; the re-read sees both.
	if err := c.AddNodeProp("res", "k", "count", types.IntValue(2), types.NoIndex); err != nil {
		t.Fatalf("AddNodeProp: %v", err)
	}
	props, err = c.GetProvenanceData("res", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if len(props) != 2 {
		t.Errorf("props = %v, want name and count", props)
	}
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, 0)

	// With TTL 0 every entry is born expired: repeated node writes are not
	// collapsed and every read goes to the store.
	if err := c.AddNode("res", "k", types.LabelEntity); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := c.AddNode("res", "k", types.LabelEntity); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := store.countOps("node:"); got != 2 {
		t.Errorf("durable node writes = %d, want 2", got)
	}

	if _, err := c.GetProvenanceData("res", "k"); err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if _, err := c.GetProvenanceData("res", "k"); err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if store.reads != 2 {
		t.Errorf("store reads = %d, want 2 (no caching at TTL 0)", store.reads)
	}
}

func TestPendingOverflowForcesFlush(t *testing.T) {
	store := newCountingStore()
	c := New(store, Options{TTL: time.Minute, PendingMax: 2})

	for _, k := range []string{"a", "b", "c"} {
		if err := c.AddNode("res", k, types.LabelEntity); err != nil {
			t.Fatalf("AddNode(%s): %v", k, err)
		}
	}
	if got := store.countOps("node:"); got != 3 {
		t.Errorf("durable node writes = %d, want 3 after overflow flush", got)
	}
}

func TestCloseFlushesAndRejectsFurtherUse(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddNode("res", "k", types.LabelEntity); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := store.countOps("node:"); got != 1 {
		t.Errorf("durable node writes = %d, want 1 after close", got)
	}

	err := c.AddNode("res", "k2", types.LabelEntity)
	if !errors.Is(err, types.ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if _, err := c.GetProvenanceData("res", "k"); !errors.Is(err, types.ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed on read, got %v", err)
	}
}

func TestClearTablesDropsCachedState(t *testing.T) {
	store := newCountingStore()
	c := newTestCache(store, time.Minute)

	if err := c.AddEdge("res", "a", "b", types.EdgeUsed); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := c.GetConnectedFrom("res", "a", types.EdgeUsed); err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}

	if err := c.ClearTables("res"); err != nil {
		t.Fatalf("ClearTables: %v", err)
	}

	got, err := c.GetConnectedFrom("res", "a", types.EdgeUsed)
	if err != nil {
		t.Fatalf("GetConnectedFrom after clear: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("stale adjacency survived clear: %v", got)
	}
}
