// Copyright 2025 Joseph Cumines

package uitree

import (
	"testing"
)

func buildSnapshot(t *testing.T) (*Snapshot, []NodeID) {
	t.Helper()
	s := NewSnapshot(true)
	root := s.Add(InvalidNode, Node{Role: "AXApplication", Title: "Calculator"})
	win := s.Add(root, Node{Role: "AXWindow", Title: "Calculator"})
	b1 := s.Add(win, Node{Role: "AXButton", Title: "7"})
	b2 := s.Add(win, Node{Role: "AXButton", Title: "8"})
	txt := s.Add(win, Node{Role: "AXStaticText", Value: "0"})
	return s, []NodeID{root, win, b1, b2, txt}
}

func TestSnapshotParentChildInvariant(t *testing.T) {
	s, ids := buildSnapshot(t)

	for _, id := range ids[1:] {
		parent := s.Parent(id)
		if parent == InvalidNode {
			t.Fatalf("node %d has no parent", id)
		}
		found := false
		for _, c := range s.Children(parent) {
			if c == id {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("node %d not present in parent %d's children", id, parent)
		}
	}

	if got := s.Parent(ids[0]); got != InvalidNode {
		t.Errorf("root parent = %d, want InvalidNode", got)
	}
}

func TestSnapshotDocumentOrder(t *testing.T) {
	s, ids := buildSnapshot(t)
	win := ids[1]

	children := s.Children(win)
	want := []NodeID{ids[2], ids[3], ids[4]}
	if len(children) != len(want) {
		t.Fatalf("got %d children, want %d", len(children), len(want))
	}
	for i, c := range children {
		if c != want[i] {
			t.Errorf("child[%d] = %d, want %d", i, c, want[i])
		}
	}
}

func TestSnapshotWalkPreOrder(t *testing.T) {
	s, ids := buildSnapshot(t)

	var visited []NodeID
	var depths []int
	s.Walk(s.Root(), func(id NodeID, depth int) bool {
		visited = append(visited, id)
		depths = append(depths, depth)
		return true
	})

	if len(visited) != len(ids) {
		t.Fatalf("visited %d nodes, want %d", len(visited), len(ids))
	}
	for i, id := range ids {
		if visited[i] != id {
			t.Errorf("visit[%d] = %d, want %d", i, visited[i], id)
		}
	}
	wantDepths := []int{0, 1, 2, 2, 2}
	for i, d := range wantDepths {
		if depths[i] != d {
			t.Errorf("depth[%d] = %d, want %d", i, depths[i], d)
		}
	}
}

func TestSnapshotWalkStops(t *testing.T) {
	s, _ := buildSnapshot(t)

	count := 0
	s.Walk(s.Root(), func(NodeID, int) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("visited %d nodes after stop, want 2", count)
	}
}

func TestSnapshotInvalidIDs(t *testing.T) {
	s, _ := buildSnapshot(t)

	if s.Node(InvalidNode) != nil {
		t.Error("Node(InvalidNode) should be nil")
	}
	if s.Node(NodeID(99)) != nil {
		t.Error("Node(99) should be nil")
	}
	if got := s.Parent(NodeID(99)); got != InvalidNode {
		t.Errorf("Parent(99) = %d, want InvalidNode", got)
	}
	if got := s.Children(NodeID(99)); got != nil {
		t.Errorf("Children(99) = %v, want nil", got)
	}
}

func TestSnapshotCanonicalPathMemo(t *testing.T) {
	s, ids := buildSnapshot(t)

	if got := s.CanonicalPath(ids[2]); got != "" {
		t.Errorf("unset canonical path = %q, want empty", got)
	}
	s.SetCanonicalPath(ids[2], `ui://AXApplication/AXWindow/AXButton[@title="7"]`)
	if got := s.CanonicalPath(ids[2]); got == "" {
		t.Error("canonical path not memoized")
	}
}

func TestSnapshotAnchored(t *testing.T) {
	if !NewSnapshot(true).Anchored() {
		t.Error("anchored snapshot reports unanchored")
	}
	if NewSnapshot(false).Anchored() {
		t.Error("unanchored snapshot reports anchored")
	}
}

func TestAttrValueVariants(t *testing.T) {
	tests := []struct {
		name string
		v    AttrValue
		kind AttrKind
		text string
	}{
		{"string", StringAttr("hello"), AttrString, "hello"},
		{"bool", BoolAttr(true), AttrBool, "true"},
		{"number", NumberAttr(3.5), AttrNumber, "3.5"},
		{"integer number", NumberAttr(42), AttrNumber, "42"},
		{"map", MapAttr(map[string]AttrValue{"a": StringAttr("b")}), AttrMap, "{1 entries}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %d, want %d", tt.v.Kind(), tt.kind)
			}
			if got := tt.v.Text(); got != tt.text {
				t.Errorf("Text() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestAttrFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind AttrKind
		text string
	}{
		{"string", "x", AttrString, "x"},
		{"bool", false, AttrBool, "false"},
		{"float", 1.25, AttrNumber, "1.25"},
		{"int", 7, AttrNumber, "7"},
		{"nil", nil, AttrString, ""},
		{"nested map", map[string]any{"k": "v"}, AttrMap, "{1 entries}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := AttrFromAny(tt.in)
			if v.Kind() != tt.kind {
				t.Errorf("Kind() = %d, want %d", v.Kind(), tt.kind)
			}
			if got := v.Text(); got != tt.text {
				t.Errorf("Text() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestAttrFromAnyNested(t *testing.T) {
	v := AttrFromAny(map[string]any{"outer": map[string]any{"inner": true}})
	outer, ok := v.Map()["outer"]
	if !ok {
		t.Fatal("missing outer key")
	}
	inner, ok := outer.Map()["inner"]
	if !ok {
		t.Fatal("missing inner key")
	}
	if inner.Kind() != AttrBool || !inner.Bool() {
		t.Errorf("inner = %v, want bool true", inner)
	}
}
