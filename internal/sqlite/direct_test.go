// Tests for the direct log-index strategy.
package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

func TestDirectNodeInsertIdempotent(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	for i := 0; i < 3; i++ {
		if err := store.AddNode("res", "clicks._e0", types.LabelEntity); err != nil {
			t.Fatalf("AddNode attempt %d: %v", i, err)
		}
	}

	var count int
	err := b.db.QueryRow(
		"SELECT COUNT(*) FROM nodes WHERE resource = ? AND key = ?", "res", "clicks._e0",
	).Scan(&count)
	if err != nil {
		t.Fatalf("counting nodes: %v", err)
	}
	if count != 1 {
		t.Errorf("node count = %d, want 1", count)
	}
}

func TestDirectEdgeDedup(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	for i := 0; i < 3; i++ {
		if err := store.AddEdge("res", "a", "b", types.EdgeWasDerivedFrom); err != nil {
			t.Fatalf("AddEdge attempt %d: %v", i, err)
		}
	}

	got, err := store.GetConnectedFrom("res", "a", types.EdgeWasDerivedFrom)
	if err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("neighbors = %v, want [b]", got)
	}
}

func TestDirectTypedProperties(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	ts := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	props := []struct {
		label string
		value types.Value
	}{
		{"name", types.StringValue("avg")},
		{"count", types.IntValue(12)},
		{"total", types.LongValue(1 << 33)},
		{"mean", types.DoubleValue(2.5)},
		{"rate", types.FloatValue(0.5)},
		{"startTime", types.TimestampValue(ts)},
	}
	for _, p := range props {
		if err := store.AddNodeProp("res", "k", p.label, p.value, types.NoIndex); err != nil {
			t.Fatalf("AddNodeProp(%s): %v", p.label, err)
		}
	}

	got, err := store.GetProvenanceData("res", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if len(got) != len(props) {
		t.Fatalf("property count = %d, want %d", len(got), len(props))
	}
	for _, p := range props {
		v, ok := got[p.label]
		if !ok {
			t.Errorf("property %q missing", p.label)
			continue
		}
		if v.Code() != p.value.Code() {
			t.Errorf("property %q code = %q, want %q", p.label, v.Code(), p.value.Code())
		}
		if v.Native() != p.value.Native() {
			t.Errorf("property %q = %v, want %v", p.label, v.Native(), p.value.Native())
		}
	}
}

func TestDirectPositionalPropertyScope(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	// The same label at different positions yields distinct rows; the same
	// label at the same position is one row.
	if err := store.AddNodeProp("res", "k", "field", types.StringValue("x"), 0); err != nil {
		t.Fatalf("AddNodeProp idx 0: %v", err)
	}
	if err := store.AddNodeProp("res", "k", "field", types.StringValue("y"), 1); err != nil {
		t.Fatalf("AddNodeProp idx 1: %v", err)
	}
	if err := store.AddNodeProp("res", "k", "field", types.StringValue("dup"), 1); err != nil {
		t.Fatalf("AddNodeProp duplicate idx 1: %v", err)
	}

	got, err := store.GetProvenanceData("res", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("property count = %d, want 2: %v", len(got), got)
	}
	if got["field"].Text() != "x" {
		t.Errorf("field = %q, want x", got["field"].Text())
	}
	if got["field_1"].Text() != "y" {
		t.Errorf("field_1 = %q, want y (first write wins)", got["field_1"].Text())
	}
}

func TestDirectNeighborsInsertionOrder(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	targets := []string{"w1", "w2", "w3"}
	for _, to := range targets {
		if err := store.AddEdge("res", "a", to, types.EdgeUsed); err != nil {
			t.Fatalf("AddEdge(%s): %v", to, err)
		}
	}
	if err := store.AddEdge("res", "a", "other", types.EdgeWasDerivedFrom); err != nil {
		t.Fatalf("AddEdge other label: %v", err)
	}

	got, err := store.GetConnectedFrom("res", "a", types.EdgeUsed)
	if err != nil {
		t.Fatalf("GetConnectedFrom: %v", err)
	}
	if len(got) != len(targets) {
		t.Fatalf("neighbors = %v, want %v", got, targets)
	}
	for i, want := range targets {
		if got[i] != want {
			t.Errorf("neighbor[%d] = %q, want %q", i, got[i], want)
		}
	}

	// Reverse direction finds the source.
	back, err := store.GetConnectedTo("res", "w2", types.EdgeUsed)
	if err != nil {
		t.Fatalf("GetConnectedTo: %v", err)
	}
	if len(back) != 1 || back[0] != "a" {
		t.Errorf("reverse neighbors = %v, want [a]", back)
	}
}

func TestDirectSchema(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	_, err := store.GetSchema("res", "clicks")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.AddSchema("res", "e_clicks", "clicks", "user,page,ts"); err != nil {
		t.Fatalf("AddSchema: %v", err)
	}
	// Re-registering the same schema is idempotent.
	if err := store.AddSchema("res", "e_clicks", "clicks", "user,page,ts"); err != nil {
		t.Fatalf("AddSchema repeat: %v", err)
	}

	got, err := store.GetSchema("res", "clicks")
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	if got != "user,page,ts" {
		t.Errorf("schema = %q, want user,page,ts", got)
	}
}

func TestDirectClearTablesScopedToResource(t *testing.T) {
	b := setupBackend(t)
	store := NewDirect(b)

	for _, res := range []string{"res1", "res2"} {
		if err := store.AddNode(res, "k", types.LabelEntity); err != nil {
			t.Fatalf("AddNode(%s): %v", res, err)
		}
		if err := store.AddNodeProp(res, "k", "name", types.StringValue(res), types.NoIndex); err != nil {
			t.Fatalf("AddNodeProp(%s): %v", res, err)
		}
		if err := store.AddEdge(res, "k", "j", types.EdgeHadMember); err != nil {
			t.Fatalf("AddEdge(%s): %v", res, err)
		}
	}

	if err := store.ClearTables("res1"); err != nil {
		t.Fatalf("ClearTables: %v", err)
	}

	props, err := store.GetProvenanceData("res1", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData(res1): %v", err)
	}
	if len(props) != 0 {
		t.Errorf("res1 properties survived clear: %v", props)
	}

	props, err = store.GetProvenanceData("res2", "k")
	if err != nil {
		t.Fatalf("GetProvenanceData(res2): %v", err)
	}
	if props["name"].Text() != "res2" {
		t.Errorf("res2 properties lost by clear of res1: %v", props)
	}
}
