// Package cache implements the read-through, write-behind graph cache that
// sits in front of any log-index strategy. Five independently TTL'd maps
// cover nodes, edges, node properties, and the two adjacency directions.
// Writes are deferred as closures on a FIFO pending queue; edge writes
// force a flush so adjacency queries stay bounded-stale, and any read that
// misses flushes first so it can never miss its own writes.
// See docs/ARCHITECTURE § Graph Cache.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

var _ types.Store = (*Cache)(nil)

// Cache hit/miss/flush counters across all cache instances.
var (
	cacheHits    = metrics.NewCounter("lineage_cache_hits_total")
	cacheMisses  = metrics.NewCounter("lineage_cache_misses_total")
	cacheFlushes = metrics.NewCounter("lineage_cache_flushes_total")
)

// Options configures a Cache instance.
type Options struct {
	TTL        time.Duration // entry lifetime; 0 means entries expire immediately
	MaxSize    int           // max entries per map; 0 = unbounded
	PendingMax int           // pending-write queue flush threshold; 0 = default
}

// entry is one cached value with its expiry deadline.
type entry struct {
	value    any
	expires  time.Time
	inserted time.Time
}

// Cache fronts a Store with TTL'd maps and a deferred-write queue. The
// maps tolerate concurrent readers, but the write path assumes a single
// writer at a time, matching the Store contract.
type Cache struct {
	store      types.Store
	ttl        time.Duration
	maxSize    int
	pendingMax int

	nodes    *xsync.MapOf[string, entry] // node identity -> label
	edges    *xsync.MapOf[string, entry] // edge identity -> struct{}
	props    *xsync.MapOf[string, entry] // node identity -> map[string]types.Value
	connFrom *xsync.MapOf[string, entry] // (subject, label) -> []string
	connTo   *xsync.MapOf[string, entry] // (object, label) -> []string

	mu      sync.Mutex
	pending []func() error
	closed  bool
}

// New returns a cache in front of the given store.
func New(store types.Store, opts Options) *Cache {
	if opts.PendingMax <= 0 {
		opts.PendingMax = types.DefaultPendingMax
	}
	return &Cache{
		store:      store,
		ttl:        opts.TTL,
		maxSize:    opts.MaxSize,
		pendingMax: opts.PendingMax,
		nodes:      xsync.NewMapOf[string, entry](),
		edges:      xsync.NewMapOf[string, entry](),
		props:      xsync.NewMapOf[string, entry](),
		connFrom:   xsync.NewMapOf[string, entry](),
		connTo:     xsync.NewMapOf[string, entry](),
	}
}

func nodeKey(resource, key string) string { return resource + "|" + key }

func edgeKey(resource, from, to, label string) string {
	return resource + "|" + from + "|" + to + "|" + label
}

func adjKey(resource, key, label string) string { return resource + "|" + key + "|" + label }

// lookup returns the cached value if present and fresh; expired entries
// are removed on access.
func (c *Cache) lookup(m *xsync.MapOf[string, entry], key string) (any, bool) {
	e, ok := m.Load(key)
	if !ok {
		return nil, false
	}
	if !time.Now().Before(e.expires) {
		m.Delete(key)
		return nil, false
	}
	return e.value, true
}

// insert stores a value with the instance TTL, evicting the oldest entry
// when the map is at its size bound.
func (c *Cache) insert(m *xsync.MapOf[string, entry], key string, value any) {
	if c.maxSize > 0 && m.Size() >= c.maxSize {
		evictOldest(m)
	}
	now := time.Now()
	m.Store(key, entry{value: value, expires: now.Add(c.ttl), inserted: now})
}

// evictOldest removes the entry with the earliest insertion time,
// preferring any entry that has already expired.
func evictOldest(m *xsync.MapOf[string, entry]) {
	var oldestKey string
	var oldest time.Time
	now := time.Now()
	found := false
	m.Range(func(k string, e entry) bool {
		if !now.Before(e.expires) {
			oldestKey, found = k, true
			return false
		}
		if !found || e.inserted.Before(oldest) {
			oldestKey, oldest, found = k, e.inserted, true
		}
		return true
	})
	if found {
		m.Delete(oldestKey)
	}
}

// append queues a deferred write closure. Exceeding the pending threshold
// forces a flush.
func (c *Cache) append(write func() error) error {
	c.mu.Lock()
	c.pending = append(c.pending, write)
	overflow := len(c.pending) > c.pendingMax
	c.mu.Unlock()

	if overflow {
		return c.Flush()
	}
	return nil
}

// Flush executes and clears all pending closures in enqueue order. FIFO
// matters: an edge closure may depend on its node closures having run.
func (c *Cache) Flush() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, write := range pending {
		if err := write(); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		cacheFlushes.Inc()
	}
	return c.store.Flush()
}

// Close flushes pending writes; the cache must not be used afterwards.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Cache) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return types.ErrCacheClosed
	}
	return nil
}

// AddNode caches the node by identity and defers the durable write. A
// fresh cache hit means the node was already recorded: nothing to do.
func (c *Cache) AddNode(resource, key, label string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	id := nodeKey(resource, key)
	if _, ok := c.lookup(c.nodes, id); ok {
		cacheHits.Inc()
		return nil
	}
	cacheMisses.Inc()
	c.insert(c.nodes, id, label)
	return c.append(func() error {
		return c.store.AddNode(resource, key, label)
	})
}

// AddEdge caches the edge by identity, eagerly maintains both adjacency
// indices, defers the durable write, and then flushes immediately: unlike
// nodes, edges bound staleness for adjacency queries.
func (c *Cache) AddEdge(resource, from, to, label string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	id := edgeKey(resource, from, to, label)
	if _, ok := c.lookup(c.edges, id); ok {
		cacheHits.Inc()
		return nil
	}
	cacheMisses.Inc()
	c.insert(c.edges, id, struct{}{})

	// Update cached adjacency lists in place. Absent lists are left to the
	// read-through path, which sees the full durable state.
	if v, ok := c.lookup(c.connFrom, adjKey(resource, from, label)); ok {
		c.insert(c.connFrom, adjKey(resource, from, label), appendUnique(v.([]string), to))
	}
	if v, ok := c.lookup(c.connTo, adjKey(resource, to, label)); ok {
		c.insert(c.connTo, adjKey(resource, to, label), appendUnique(v.([]string), from))
	}
	// A warm all-labels list for either endpoint is stale now; drop it and
	// let the next unfiltered query read through.
	if label != "" {
		c.connFrom.Delete(adjKey(resource, from, ""))
		c.connTo.Delete(adjKey(resource, to, ""))
	}

	if err := c.append(func() error {
		return c.store.AddEdge(resource, from, to, label)
	}); err != nil {
		return err
	}
	return c.Flush()
}

// AddNodeProp defers the durable write and invalidates the cached property
// map for the node; the next read rebuilds it from the store.
func (c *Cache) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.props.Delete(nodeKey(resource, key))
	return c.append(func() error {
		return c.store.AddNodeProp(resource, key, label, value, index)
	})
}

// AddSchema writes through; schema rows are not cached.
func (c *Cache) AddSchema(resource, key, name, value string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.store.AddSchema(resource, key, name, value)
}

// GetConnectedTo returns the cached adjacency list or reads through,
// flushing pending writes first so the store sees everything enqueued.
func (c *Cache) GetConnectedTo(resource, key, label string) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	id := adjKey(resource, key, label)
	if v, ok := c.lookup(c.connTo, id); ok {
		cacheHits.Inc()
		return v.([]string), nil
	}
	cacheMisses.Inc()
	if err := c.Flush(); err != nil {
		return nil, err
	}
	keys, err := c.store.GetConnectedTo(resource, key, label)
	if err != nil {
		return nil, err
	}
	c.insert(c.connTo, id, keys)
	return keys, nil
}

// GetConnectedFrom mirrors GetConnectedTo for the outgoing direction.
func (c *Cache) GetConnectedFrom(resource, key, label string) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	id := adjKey(resource, key, label)
	if v, ok := c.lookup(c.connFrom, id); ok {
		cacheHits.Inc()
		return v.([]string), nil
	}
	cacheMisses.Inc()
	if err := c.Flush(); err != nil {
		return nil, err
	}
	keys, err := c.store.GetConnectedFrom(resource, key, label)
	if err != nil {
		return nil, err
	}
	c.insert(c.connFrom, id, keys)
	return keys, nil
}

// GetProvenanceData returns the cached property map or reads through.
func (c *Cache) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	id := nodeKey(resource, key)
	if v, ok := c.lookup(c.props, id); ok {
		cacheHits.Inc()
		return v.(map[string]types.Value), nil
	}
	cacheMisses.Inc()
	if err := c.Flush(); err != nil {
		return nil, err
	}
	props, err := c.store.GetProvenanceData(resource, key)
	if err != nil {
		return nil, err
	}
	c.insert(c.props, id, props)
	return props, nil
}

// GetSchema reads through after a flush; schema rows are not cached.
func (c *Cache) GetSchema(resource, name string) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	if err := c.Flush(); err != nil {
		return "", err
	}
	return c.store.GetSchema(resource, name)
}

func (c *Cache) CreateTables() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.store.CreateTables()
}

// ClearTables drops every cached entry along with the stored rows.
func (c *Cache) ClearTables(resource string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	c.nodes.Clear()
	c.edges.Clear()
	c.props.Clear()
	c.connFrom.Clear()
	c.connTo.Clear()
	return c.store.ClearTables(resource)
}

func appendUnique(list []string, key string) []string {
	for _, k := range list {
		if k == key {
			return list
		}
	}
	out := make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, key)
}

// String renders cache occupancy for debugging.
func (c *Cache) String() string {
	return fmt.Sprintf("cache{nodes=%d edges=%d props=%d from=%d to=%d pending=%d}",
		c.nodes.Size(), c.edges.Size(), c.props.Size(), c.connFrom.Size(), c.connTo.Size(), len(c.pending))
}
