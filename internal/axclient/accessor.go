// Copyright 2025 Joseph Cumines
//
// Accessibility bridge capability consumed by the core

// Package axclient defines the capability surface this tool consumes from
// the platform accessibility bridge: fetching a bounded subtree for a
// scope, and re-fetching a deeper subtree rooted at an already-known
// element. The bridge owns everything else (event synthesis, screenshots,
// application lifecycle); nothing in this repository talks to the platform
// directly.
package axclient

import (
	"context"
	"fmt"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// ScopeKind selects the addressing root for a fetch.
type ScopeKind int

const (
	// ScopeSystem addresses the system-wide root; its children are the
	// running applications.
	ScopeSystem ScopeKind = iota
	// ScopeApplication addresses one application by bundle identifier.
	ScopeApplication
	// ScopeFocused addresses the currently focused application.
	ScopeFocused
	// ScopeElement addresses an already-resolved element by its canonical
	// path; the bridge re-resolves the path on its side.
	ScopeElement
)

// String returns the scope kind's wire name.
func (k ScopeKind) String() string {
	switch k {
	case ScopeSystem:
		return "system"
	case ScopeApplication:
		return "application"
	case ScopeFocused:
		return "focused"
	case ScopeElement:
		return "element"
	default:
		return "unknown"
	}
}

// Scope is the addressing root context for a fetch.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Scope struct {
	Kind ScopeKind

	// BundleID identifies the application for ScopeApplication.
	BundleID string

	// ElementPath is the canonical path for ScopeElement.
	ElementPath string
}

// SystemScope returns the system-wide scope.
func SystemScope() Scope { return Scope{Kind: ScopeSystem} }

// ApplicationScope returns a scope addressing the application with the
// given bundle identifier.
func ApplicationScope(bundleID string) Scope {
	return Scope{Kind: ScopeApplication, BundleID: bundleID}
}

// FocusedScope returns a scope addressing the focused application.
func FocusedScope() Scope { return Scope{Kind: ScopeFocused} }

// ElementScope returns a scope addressing an already-resolved element.
func ElementScope(path string) Scope {
	return Scope{Kind: ScopeElement, ElementPath: path}
}

// String returns the scope formatted for logs and error messages.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeApplication:
		return fmt.Sprintf("application(%s)", s.BundleID)
	case ScopeElement:
		return fmt.Sprintf("element(%s)", s.ElementPath)
	default:
		return s.Kind.String()
	}
}

// Accessor is the minimal read capability the core consumes from the
// accessibility bridge. Implementations must not mutate previously
// returned snapshots; every call produces a fresh, caller-owned snapshot.
// Cancellation and timeouts arrive via ctx and are propagated, never
// retried, by the core.
type Accessor interface {
	// FetchRoot fetches the tree root for scope, loading at most maxDepth
	// levels below it. Nodes whose children were cut by the bound are
	// marked truncated.
	FetchRoot(ctx context.Context, scope Scope, maxDepth int) (*uitree.Snapshot, error)

	// FetchChildren re-fetches a deeper subtree rooted at a node of a
	// previously fetched snapshot, to a new depth bound. Used by the path
	// resolver when resolution walks past the loaded depth. The returned
	// snapshot is rooted mid-tree and therefore not anchored.
	FetchChildren(ctx context.Context, snap *uitree.Snapshot, id uitree.NodeID, maxDepth int) (*uitree.Snapshot, error)
}

// BridgeNode is the wire record for one element, as the bridge serializes
// it. Attributes is an open heterogeneous bag; it is converted to tagged
// uitree.AttrValue variants on snapshot construction.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type BridgeNode struct {
	Ref         string         `json:"ref,omitempty"`
	Role        string         `json:"role"`
	Title       string         `json:"title,omitempty"`
	Value       string         `json:"value,omitempty"`
	Description string         `json:"description,omitempty"`
	Identifier  string         `json:"identifier,omitempty"`
	Frame       uitree.Frame   `json:"frame"`
	Visible     bool           `json:"visible"`
	Enabled     bool           `json:"enabled"`
	Focused     bool           `json:"focused,omitempty"`
	Selected    bool           `json:"selected,omitempty"`
	Truncated   bool           `json:"truncated,omitempty"`
	Actions     []string       `json:"actions,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Children    []*BridgeNode  `json:"children,omitempty"`
}

// SnapshotFromBridge converts a bridge subtree into an arena-backed
// snapshot. anchored declares whether root is a scope root (application or
// system-wide) rather than a mid-tree element.
func SnapshotFromBridge(root *BridgeNode, anchored bool) *uitree.Snapshot {
	snap := uitree.NewSnapshot(anchored)
	if root != nil {
		addBridgeNode(snap, uitree.InvalidNode, root)
	}
	return snap
}

func addBridgeNode(snap *uitree.Snapshot, parent uitree.NodeID, w *BridgeNode) {
	n := uitree.Node{
		Role:        w.Role,
		Title:       w.Title,
		Value:       w.Value,
		Description: w.Description,
		Identifier:  w.Identifier,
		Ref:         w.Ref,
		Frame:       w.Frame,
		Visible:     w.Visible,
		Enabled:     w.Enabled,
		Focused:     w.Focused,
		Selected:    w.Selected,
		Truncated:   w.Truncated,
		Actions:     w.Actions,
	}
	if len(w.Attributes) > 0 {
		n.Attrs = make(map[string]uitree.AttrValue, len(w.Attributes))
		for k, v := range w.Attributes {
			n.Attrs[k] = uitree.AttrFromAny(v)
		}
	}
	id := snap.Add(parent, n)
	for _, c := range w.Children {
		addBridgeNode(snap, id, c)
	}
}
