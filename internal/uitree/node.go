// Copyright 2025 Joseph Cumines
//
// In-memory model of one fetched accessibility subtree

// Package uitree provides the node model for fetched accessibility tree
// snapshots.
//
// A Snapshot is an arena: every node lives in a flat slice and is addressed
// by its NodeID (an index into that slice). Parent and child links are
// stored as IDs rather than pointers, so back-references are weak and
// cannot dangle within a snapshot. Snapshots are created fresh per external
// query and discarded after the call; nothing here is safe to share across
// snapshots.
package uitree

import "fmt"

// NodeID identifies a node within one Snapshot. IDs are not stable across
// snapshots.
type NodeID int

// InvalidNode is the zero-value-adjacent sentinel for "no node".
const InvalidNode NodeID = -1

// Frame is a node's position and size in screen coordinates.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// String returns the frame formatted as "WxH @ (X, Y)".
func (f Frame) String() string {
	return fmt.Sprintf("%.0fx%.0f @ (%.0f, %.0f)", f.Width, f.Height, f.X, f.Y)
}

// Node is one element of a fetched subtree snapshot. Nodes are owned by
// their Snapshot and must not be retained past it.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Node struct {
	// Role is the accessibility role tag, e.g. "AXButton".
	Role string

	// Title, Value and Description are the primary textual attributes.
	// Any of them may be empty.
	Title       string
	Value       string
	Description string

	// Identifier is the element's accessibility identifier attribute,
	// often empty.
	Identifier string

	// Ref is the bridge-assigned handle for this element, used to re-fetch
	// a deeper subtree rooted here. Valid only for the lifetime of the
	// call that produced the snapshot.
	Ref string

	// Frame is the element's bounds in screen coordinates.
	Frame Frame

	// State flags as reported by the platform.
	Visible  bool
	Enabled  bool
	Focused  bool
	Selected bool

	// Truncated is set when the fetch depth bound cut this node's children
	// off: the element has (or may have) children that were not loaded.
	Truncated bool

	// Actions is the set of operation names the element supports,
	// e.g. "AXPress".
	Actions []string

	// Attrs is the open attribute bag. Values are tagged variants; see
	// AttrValue.
	Attrs map[string]AttrValue

	parent   NodeID
	children []NodeID

	// canonicalPath memoizes the generated path for this node. Valid only
	// within this snapshot.
	canonicalPath string
}

// SupportsAction reports whether the node's action set contains name.
func (n *Node) SupportsAction(name string) bool {
	for _, a := range n.Actions {
		if a == name {
			return true
		}
	}
	return false
}

// Snapshot is one fetched, caller-owned instance of a subtree. The node at
// ID 0 is the snapshot root.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Snapshot struct {
	nodes []Node

	// anchored is true when the snapshot root is itself a scope root (an
	// application or the system-wide root), i.e. ancestry chains in this
	// snapshot terminate at a real root rather than mid-tree.
	anchored bool
}

// NewSnapshot creates an empty snapshot. The first node added becomes the
// root. anchored declares whether that root is a scope root; subtree
// re-fetches rooted mid-tree are not anchored.
func NewSnapshot(anchored bool) *Snapshot {
	return &Snapshot{anchored: anchored}
}

// Anchored reports whether the snapshot root is a scope root. Path
// generation requires an anchored snapshot.
func (s *Snapshot) Anchored() bool { return s.anchored }

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Root returns the snapshot root, or InvalidNode for an empty snapshot.
func (s *Snapshot) Root() NodeID {
	if len(s.nodes) == 0 {
		return InvalidNode
	}
	return 0
}

// Add appends a node under parent and returns its ID. Pass InvalidNode as
// parent for the root; adding a second root panics, as does adding under an
// unknown parent. This is the only way nodes enter a snapshot, which is
// what maintains the invariant that a node with a parent is always present
// in that parent's child list.
func (s *Snapshot) Add(parent NodeID, n Node) NodeID {
	if parent == InvalidNode {
		if len(s.nodes) != 0 {
			panic("uitree: snapshot already has a root")
		}
	} else if !s.valid(parent) {
		panic(fmt.Sprintf("uitree: unknown parent %d", parent))
	}
	id := NodeID(len(s.nodes))
	n.parent = parent
	n.children = nil
	n.canonicalPath = ""
	s.nodes = append(s.nodes, n)
	if parent != InvalidNode {
		p := &s.nodes[parent]
		p.children = append(p.children, id)
	}
	return id
}

// Node returns the node for id, or nil if id is not in this snapshot. The
// returned pointer is into the arena and is invalidated by Add.
func (s *Snapshot) Node(id NodeID) *Node {
	if !s.valid(id) {
		return nil
	}
	return &s.nodes[id]
}

// Parent returns id's parent, or InvalidNode for the root or an unknown id.
func (s *Snapshot) Parent(id NodeID) NodeID {
	if !s.valid(id) {
		return InvalidNode
	}
	return s.nodes[id].parent
}

// Children returns id's children in document order. The returned slice is
// owned by the snapshot and must not be modified.
func (s *Snapshot) Children(id NodeID) []NodeID {
	if !s.valid(id) {
		return nil
	}
	return s.nodes[id].children
}

// CanonicalPath returns the memoized canonical path for id, or "" if none
// has been recorded in this snapshot.
func (s *Snapshot) CanonicalPath(id NodeID) string {
	if !s.valid(id) {
		return ""
	}
	return s.nodes[id].canonicalPath
}

// SetCanonicalPath records the canonical path for id. Called by the path
// generator; the memo is valid only within this snapshot.
func (s *Snapshot) SetCanonicalPath(id NodeID, path string) {
	if s.valid(id) {
		s.nodes[id].canonicalPath = path
	}
}

// Walk visits id and its descendants pre-order, in document order. The
// visitor receives each node's ID and its depth relative to id (0 for id
// itself). Returning false stops the walk.
func (s *Snapshot) Walk(id NodeID, visit func(NodeID, int) bool) {
	if !s.valid(id) {
		return
	}
	s.walk(id, 0, visit)
}

func (s *Snapshot) walk(id NodeID, depth int, visit func(NodeID, int) bool) bool {
	if !visit(id, depth) {
		return false
	}
	for _, c := range s.nodes[id].children {
		if !s.walk(c, depth+1, visit) {
			return false
		}
	}
	return true
}

func (s *Snapshot) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(s.nodes)
}
