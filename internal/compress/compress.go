// Package compress implements the experimental compressing log-index
// strategy. It wraps another Store and watches the sequence of mutation
// operations for repeated subsequences; a recognized repeat reuses the
// recorded pattern's binding id instead of allocating a new one. The layer
// only manages id-reuse bookkeeping: every write is always delegated to
// the wrapped strategy, and wrapped errors propagate without recovery.
// See docs/ARCHITECTURE § Compressing Strategy.
package compress

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Operation kinds tracked in the history.
const (
	opNode = "n"
	opEdge = "e"
	opProp = "p"
)

// maxHistory bounds the rolling operation history. Patterns longer than
// this are never detected, which only costs compression, not correctness.
const maxHistory = 64

// opSig is the shape of one mutation: kind and label, plus the property
// index when present. Bound arguments are deliberately excluded so that
// structurally identical derivations match.
type opSig struct {
	kind  string
	label string
	index int
}

func (s opSig) String() string {
	if s.index >= 0 {
		return fmt.Sprintf("%s:%s:%d", s.kind, s.label, s.index)
	}
	return s.kind + ":" + s.label
}

// pattern is a previously recorded operation subsequence. id is the
// sequential binding id assigned at recording time; insertedAt orders
// patterns by recency.
type pattern struct {
	id         int
	insertedAt int
}

// Store wraps another log-index strategy with repeat detection.
type Store struct {
	wrapped types.Store

	mu       sync.Mutex
	history  []opSig
	index    map[string]pattern // joined signature sequence -> pattern
	chains   map[int][]int      // pattern id -> event ordinals chained onto it
	bindings int                // count of recorded patterns; next id
	clock    int                // event ordinal counter
}

// New returns a compressing strategy around the given store.
func New(wrapped types.Store) *Store {
	return &Store{
		wrapped: wrapped,
		index:   make(map[string]pattern),
		chains:  make(map[int][]int),
	}
}

// observe appends one operation to the history and runs the matching loop.
// Scanning starts from the longest suffix of the history and works down;
// the first hit wins, so the longest recorded pattern is preferred. Each
// suffix length has at most one recorded pattern (the index is keyed by the
// exact signature sequence), so with the longest-first scan the match is
// deterministic; insertedAt keeps recency should the index ever admit
// competing patterns of equal length. A miss records the full current
// history as a new pattern and asks the wrapped strategy to flush.
func (s *Store) observe(sig opSig) error {
	s.mu.Lock()

	s.clock++
	s.history = append(s.history, sig)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}

	for i := 0; i < len(s.history); i++ {
		key := joinSigs(s.history[i:])
		if p, ok := s.index[key]; ok {
			s.chains[p.id] = append(s.chains[p.id], s.clock)
			s.mu.Unlock()
			return nil
		}
	}

	key := joinSigs(s.history)
	id := s.bindings
	s.bindings++
	s.index[key] = pattern{id: id, insertedAt: s.clock}
	s.mu.Unlock()

	return s.wrapped.Flush()
}

func joinSigs(sigs []opSig) string {
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		parts[i] = s.String()
	}
	return strings.Join(parts, "|")
}

// Bindings returns the number of recorded patterns.
func (s *Store) Bindings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings
}

// ChainLen returns how many repeat events were chained onto the pattern
// with the given binding id.
func (s *Store) ChainLen(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains[id])
}

// Store contract. Writes delegate first so a wrapped failure surfaces
// before any bookkeeping happens for the event.

func (s *Store) AddNode(resource, key, label string) error {
	if err := s.wrapped.AddNode(resource, key, label); err != nil {
		return err
	}
	return s.observe(opSig{kind: opNode, label: label, index: types.NoIndex})
}

func (s *Store) AddEdge(resource, from, to, label string) error {
	if err := s.wrapped.AddEdge(resource, from, to, label); err != nil {
		return err
	}
	return s.observe(opSig{kind: opEdge, label: label, index: types.NoIndex})
}

func (s *Store) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	if err := s.wrapped.AddNodeProp(resource, key, label, value, index); err != nil {
		return err
	}
	return s.observe(opSig{kind: opProp, label: label, index: index})
}

func (s *Store) AddSchema(resource, key, name, value string) error {
	return s.wrapped.AddSchema(resource, key, name, value)
}

func (s *Store) CreateTables() error { return s.wrapped.CreateTables() }

// ClearTables resets the bookkeeping along with the stored rows; recorded
// patterns refer to history that no longer exists.
func (s *Store) ClearTables(resource string) error {
	s.mu.Lock()
	s.history = nil
	s.index = make(map[string]pattern)
	s.chains = make(map[int][]int)
	s.bindings = 0
	s.mu.Unlock()
	return s.wrapped.ClearTables(resource)
}

func (s *Store) Flush() error { return s.wrapped.Flush() }

func (s *Store) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	return s.wrapped.GetProvenanceData(resource, key)
}

func (s *Store) GetConnectedTo(resource, key, label string) ([]string, error) {
	return s.wrapped.GetConnectedTo(resource, key, label)
}

func (s *Store) GetConnectedFrom(resource, key, label string) ([]string, error) {
	return s.wrapped.GetConnectedFrom(resource, key, label)
}

func (s *Store) GetSchema(resource, name string) (string, error) {
	return s.wrapped.GetSchema(resource, name)
}
