// Package dedup implements the event-set deduplication engine. Primitive
// mutation events (add node, add edge, add property) are grouped into
// canonical, order-independent sets; a set that was already recorded maps
// back to its existing id instead of writing the graph again. The package
// also tracks mergeable subgraphs built during incremental construction.
// See docs/ARCHITECTURE § Deduplication Engine.
package dedup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

// Event kinds.
const (
	KindNode = "node"
	KindEdge = "edge"
	KindProp = "prop"
)

// Composite event kinds: a compound ("C") or derived-union ("D") event id
// references two child event ids.
const (
	CompositeCompound = "C"
	CompositeDerived  = "D"
)

// Event is an atomic mutation descriptor paired with its binding arguments.
// Args holds the node key for node and property events, and the two
// endpoint keys for edge events. Value is set for property events only.
type Event struct {
	Kind  string
	Label string
	Index int // types.NoIndex for non-positional events
	Args  []string
	Value types.Value
}

// canonical returns the order-independent identity of one event.
func (e Event) canonical() string {
	parts := []string{e.Kind, e.Label, strconv.Itoa(e.Index)}
	parts = append(parts, e.Args...)
	if e.Kind == KindProp {
		parts = append(parts, e.Value.Code(), e.Value.Text())
	}
	return strings.Join(parts, "\x1f")
}

// NodeEvent describes an add-node mutation.
func NodeEvent(key, label string) Event {
	return Event{Kind: KindNode, Label: label, Index: types.NoIndex, Args: []string{key}}
}

// EdgeEvent describes an add-edge mutation.
func EdgeEvent(from, to, label string) Event {
	return Event{Kind: KindEdge, Label: label, Index: types.NoIndex, Args: []string{from, to}}
}

// PropEvent describes an add-property mutation.
func PropEvent(key, label string, value types.Value, index int) Event {
	return Event{Kind: KindProp, Label: label, Index: index, Args: []string{key}, Value: value}
}

// composite is a two-child compound or derived event.
type composite struct {
	kind  string
	left  string
	right string
}

// Engine memoizes canonical event sets per resource and performs the
// underlying graph writes for sets seen for the first time. Memo state is
// per-instance and process-lifetime; cross-process deduplication happens
// only through the durable layer's idempotent inserts.
type Engine struct {
	store    types.Store
	resource string

	mu         sync.Mutex
	memo       map[string]string  // canonical set -> set id
	sets       map[string][]Event // set id -> member events
	composites map[string]composite
	nextID     int
	subgraphs  []*Subgraph
}

// NewEngine returns an engine writing through the given store.
func NewEngine(store types.Store, resource string) *Engine {
	return &Engine{
		store:      store,
		resource:   resource,
		memo:       make(map[string]string),
		sets:       make(map[string][]Event),
		composites: make(map[string]composite),
	}
}

// CreateBaseEvent records a single-event set.
func (g *Engine) CreateBaseEvent(ev Event) (string, error) {
	id, _, err := g.ExtendEventSet(ev, "")
	return id, err
}

// ExtendEventSet computes the candidate set {ev} ∪ expression(existing),
// canonicalizes it, and memoizes. A hit returns (memoized id, false) with
// no storage performed: the derivation collapses onto existing structure.
// A miss allocates a new id, performs ev's write through the store, flushes,
// and records the memo entry, returning (new id, true).
func (g *Engine) ExtendEventSet(ev Event, existing string) (string, bool, error) {
	return g.extend(ev, existing, true)
}

// ExtendEventSetEdge is ExtendEventSet specialized for edge events; it does
// not force a flush after the write.
func (g *Engine) ExtendEventSetEdge(ev Event, existing string) (string, bool, error) {
	return g.extend(ev, existing, false)
}

func (g *Engine) extend(ev Event, existing string, flush bool) (string, bool, error) {
	g.mu.Lock()

	candidate := []Event{ev}
	if existing != "" {
		expanded, err := g.expressionLocked(existing, map[string]bool{})
		if err != nil {
			g.mu.Unlock()
			return "", false, err
		}
		candidate = append(candidate, expanded...)
	}

	key := canonicalSetKey(candidate)
	if id, ok := g.memo[key]; ok {
		g.mu.Unlock()
		return id, false, nil
	}

	id := g.allocIDLocked()
	g.memo[key] = id
	g.sets[id] = candidate
	g.mu.Unlock()

	if err := g.apply(ev); err != nil {
		g.forget(key, id)
		return "", false, err
	}
	if flush {
		if err := g.store.Flush(); err != nil {
			g.forget(key, id)
			return "", false, err
		}
	}
	return id, true, nil
}

// forget removes a memo entry whose write never reached the store, so a
// retry of the same set performs the write again instead of collapsing
// onto an id that owns no durable rows.
func (g *Engine) forget(key, id string) {
	g.mu.Lock()
	delete(g.memo, key)
	delete(g.sets, id)
	g.mu.Unlock()
}

// RegisterComposite records a compound ("C") or derived ("D") event over
// two existing event ids and returns the composite id.
func (g *Engine) RegisterComposite(kind, left, right string) (string, error) {
	if kind != CompositeCompound && kind != CompositeDerived {
		return "", fmt.Errorf("unknown composite kind %q", kind)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := kind + g.allocIDLocked()
	g.composites[id] = composite{kind: kind, left: left, right: right}
	return id, nil
}

// EventExpression resolves a possibly-composite event id to its flattened
// set of atomic events. Resolution tracks visited ids so a malformed
// composite graph with a cycle still terminates.
func (g *Engine) EventExpression(id string) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expressionLocked(id, map[string]bool{})
}

func (g *Engine) expressionLocked(id string, visited map[string]bool) ([]Event, error) {
	if visited[id] {
		return nil, nil
	}
	visited[id] = true

	if events, ok := g.sets[id]; ok {
		return events, nil
	}
	if comp, ok := g.composites[id]; ok {
		left, err := g.expressionLocked(comp.left, visited)
		if err != nil {
			return nil, err
		}
		right, err := g.expressionLocked(comp.right, visited)
		if err != nil {
			return nil, err
		}
		return append(append([]Event{}, left...), right...), nil
	}
	return nil, fmt.Errorf("%w: event %s", types.ErrNotFound, id)
}

// apply performs the graph write described by one event.
func (g *Engine) apply(ev Event) error {
	switch ev.Kind {
	case KindNode:
		return g.store.AddNode(g.resource, ev.Args[0], ev.Label)
	case KindEdge:
		return g.store.AddEdge(g.resource, ev.Args[0], ev.Args[1], ev.Label)
	case KindProp:
		return g.store.AddNodeProp(g.resource, ev.Args[0], ev.Label, ev.Value, ev.Index)
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

func (g *Engine) allocIDLocked() string {
	g.nextID++
	return strconv.Itoa(g.nextID)
}

// canonicalSetKey builds the order-independent identity of an event set.
// Duplicate events collapse before sorting.
func canonicalSetKey(events []Event) string {
	seen := make(map[string]bool, len(events))
	keys := make([]string, 0, len(events))
	for _, ev := range events {
		c := ev.canonical()
		if !seen[c] {
			seen[c] = true
			keys = append(keys, c)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x1e")
}
