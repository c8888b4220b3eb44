package dedup

// EdgeRef identifies one edge by endpoints and label, independent of its
// storage row.
type EdgeRef struct {
	From  string
	To    string
	Label string
}

// Subgraph is a mergeable unit of nodes and edges tracked during
// incremental graph construction. Internal edges connect two member
// nodes; external edges have at least one endpoint outside the node set.
// Once a subgraph is merged into another, maximal points at the surviving
// subgraph's arena index; the merged subgraph is logically retired but
// remains resolvable.
type Subgraph struct {
	Nodes    map[string]struct{}
	Internal []EdgeRef
	External []EdgeRef
	Creation string // event id that justified this subgraph

	id      int // own index in the engine's arena
	maximal int // arena index of the subgraph this one merged into; -1 when live
}

// NewSubgraph builds a subgraph in the engine's arena from a node set and
// an undifferentiated edge list; edges are classified on construction.
func (g *Engine) NewSubgraph(creation string, nodes []string, edges []EdgeRef) *Subgraph {
	g.mu.Lock()
	defer g.mu.Unlock()

	sg := &Subgraph{
		Nodes:    make(map[string]struct{}, len(nodes)),
		Creation: creation,
		maximal:  -1,
	}
	for _, n := range nodes {
		sg.Nodes[n] = struct{}{}
	}
	sg.External = edges
	sg.reclassify()

	sg.id = len(g.subgraphs)
	g.subgraphs = append(g.subgraphs, sg)
	return sg
}

// Merge unions two subgraphs into a new one justified by newEvent. Edge
// lists are concatenated rather than re-derived, then reclassified so any
// edge whose endpoints are now both interior moves to Internal. Both
// inputs' maximal pointers are redirected at the result.
func (g *Engine) Merge(a, b *Subgraph, newEvent string) *Subgraph {
	g.mu.Lock()
	defer g.mu.Unlock()

	merged := &Subgraph{
		Nodes:    make(map[string]struct{}, len(a.Nodes)+len(b.Nodes)),
		Creation: newEvent,
		maximal:  -1,
	}
	for n := range a.Nodes {
		merged.Nodes[n] = struct{}{}
	}
	for n := range b.Nodes {
		merged.Nodes[n] = struct{}{}
	}
	merged.Internal = append(append([]EdgeRef{}, a.Internal...), b.Internal...)
	merged.External = append(append([]EdgeRef{}, a.External...), b.External...)
	merged.reclassify()

	merged.id = len(g.subgraphs)
	g.subgraphs = append(g.subgraphs, merged)
	a.maximal = merged.id
	b.maximal = merged.id
	return merged
}

// Maximal resolves the subgraph this one was merged into, following the
// pointer chain to the live representative. A live subgraph returns
// itself.
func (g *Engine) Maximal(sg *Subgraph) *Subgraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	for sg.maximal >= 0 {
		sg = g.subgraphs[sg.maximal]
	}
	return sg
}

// ReclassifyInternalEdges re-runs edge classification. It must be invoked
// after any mutation to the node set so that no edge between two members
// remains external.
func (sg *Subgraph) ReclassifyInternalEdges() {
	sg.reclassify()
}

func (sg *Subgraph) reclassify() {
	var external []EdgeRef
	for _, e := range sg.External {
		_, fromIn := sg.Nodes[e.From]
		_, toIn := sg.Nodes[e.To]
		if fromIn && toIn {
			sg.Internal = append(sg.Internal, e)
		} else {
			external = append(external, e)
		}
	}
	sg.External = external
}

// Connected returns every node reachable from start over internal edges,
// expanding forward and backward until a fixed point. Terminates because
// the node universe is finite and the frontier only grows.
func (sg *Subgraph) Connected(start string) []string {
	if _, ok := sg.Nodes[start]; !ok {
		return nil
	}

	reached := map[string]struct{}{start: {}}
	frontier := []string{start}
	for len(frontier) > 0 {
		var next []string
		for _, n := range frontier {
			for _, e := range sg.Internal {
				var neighbor string
				switch n {
				case e.From:
					neighbor = e.To
				case e.To:
					neighbor = e.From
				default:
					continue
				}
				if _, seen := reached[neighbor]; !seen {
					reached[neighbor] = struct{}{}
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	nodes := make([]string, 0, len(reached))
	for n := range reached {
		nodes = append(nodes, n)
	}
	return nodes
}
