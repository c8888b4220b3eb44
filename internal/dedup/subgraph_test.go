package dedup

import (
	"sort"
	"testing"
)

func TestNewSubgraphClassifiesEdges(t *testing.T) {
	g := NewEngine(&recordingStore{}, "res")

	sg := g.NewSubgraph("1",
		[]string{"a", "b"},
		[]EdgeRef{
			{From: "a", To: "b", Label: "hadMember"},
			{From: "a", To: "x", Label: "used"},
		})

	if len(sg.Internal) != 1 || sg.Internal[0].To != "b" {
		t.Errorf("internal edges = %v, want the a->b edge", sg.Internal)
	}
	if len(sg.External) != 1 || sg.External[0].To != "x" {
		t.Errorf("external edges = %v, want the a->x edge", sg.External)
	}
}

func TestMergeReclassifiesExternalEdges(t *testing.T) {
	g := NewEngine(&recordingStore{}, "res")

	// The a->x edge is external to the first subgraph; after merging with
	// the subgraph that owns x it becomes internal.
	sgA := g.NewSubgraph("1",
		[]string{"a"},
		[]EdgeRef{{From: "a", To: "x", Label: "used"}})
	sgB := g.NewSubgraph("2", []string{"x"}, nil)

	merged := g.Merge(sgA, sgB, "3")

	if len(merged.Nodes) != 2 {
		t.Errorf("merged nodes = %v, want {a, x}", merged.Nodes)
	}
	if len(merged.Internal) != 1 {
		t.Errorf("internal edges = %v, want the reclassified a->x edge", merged.Internal)
	}
	if len(merged.External) != 0 {
		t.Errorf("external edges = %v, want none", merged.External)
	}
}

func TestMaximalFollowsMergeChain(t *testing.T) {
	g := NewEngine(&recordingStore{}, "res")

	sgA := g.NewSubgraph("1", []string{"a"}, nil)
	sgB := g.NewSubgraph("2", []string{"b"}, nil)
	sgC := g.NewSubgraph("3", []string{"c"}, nil)

	ab := g.Merge(sgA, sgB, "4")
	abc := g.Merge(ab, sgC, "5")

	// Every retired subgraph resolves to the final merge result.
	for _, sg := range []*Subgraph{sgA, sgB, sgC, ab} {
		if got := g.Maximal(sg); got != abc {
			t.Errorf("Maximal(%v) = %v, want the final merge", sg.Creation, got.Creation)
		}
	}
	// A live subgraph resolves to itself.
	if got := g.Maximal(abc); got != abc {
		t.Error("Maximal of a live subgraph must return it unchanged")
	}
}

func TestConnectedWalksBothDirections(t *testing.T) {
	g := NewEngine(&recordingStore{}, "res")

	// a -> b -> c plus an isolated d. Internal reachability ignores edge
	// direction.
	sg := g.NewSubgraph("1",
		[]string{"a", "b", "c", "d"},
		[]EdgeRef{
			{From: "a", To: "b", Label: "x"},
			{From: "c", To: "b", Label: "x"},
		})

	got := sg.Connected("a")
	sort.Strings(got)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Connected(a) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Connected(a)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := sg.Connected("d"); len(got) != 1 || got[0] != "d" {
		t.Errorf("Connected(d) = %v, want [d]", got)
	}
	if got := sg.Connected("missing"); got != nil {
		t.Errorf("Connected(missing) = %v, want nil", got)
	}
}

func TestReclassifyAfterNodeAddition(t *testing.T) {
	g := NewEngine(&recordingStore{}, "res")

	sg := g.NewSubgraph("1",
		[]string{"a"},
		[]EdgeRef{{From: "a", To: "b", Label: "x"}})
	if len(sg.External) != 1 {
		t.Fatalf("external edges = %v, want the dangling a->b edge", sg.External)
	}

	sg.Nodes["b"] = struct{}{}
	sg.ReclassifyInternalEdges()

	if len(sg.Internal) != 1 || len(sg.External) != 0 {
		t.Errorf("after reclassify: internal %v external %v", sg.Internal, sg.External)
	}
}
