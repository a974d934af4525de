// Copyright 2025 Joseph Cumines
//
// Bounded tree search with a predicate bundle

// Package filter searches a fetched snapshot for nodes matching a
// criteria bundle, independently of path addressing. Traversal is a
// bounded pre-order depth-first walk: the depth bound and the result
// limit stop it, matching never does: a non-matching node's subtree is
// still visited.
package filter

import (
	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// DefaultMaxDepth bounds traversal when the criteria leave MaxDepth
// unset.
const DefaultMaxDepth = 15

// DefaultLimit bounds the result count when the criteria leave Limit
// unset.
const DefaultLimit = 100

// Criteria is the predicate bundle for one search. Every present
// predicate must hold (they are ANDed); an absent predicate is a
// wildcard. Substring predicates are case-insensitive per the shared
// matching policy (uitree.FoldContains); exact predicates are
// case-sensitive.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Criteria struct {
	// Role requires an exact role tag match.
	Role string

	// ElementTypes restricts results to the union of the named taxonomy
	// categories. Empty, or any occurrence of uitree.TypeAny, matches
	// every role.
	ElementTypes []uitree.ElementType

	// Exact and substring text predicates.
	Title               string
	TitleContains       string
	Value               string
	ValueContains       string
	Description         string
	DescriptionContains string

	// TextContains matches when the substring appears in any of title,
	// value or description.
	TextContains string

	// AnyFieldContains matches when the substring appears in any of role,
	// title, description, value or identifier.
	AnyFieldContains string

	// Interactable and Enabled are tri-state: nil means no constraint.
	Interactable *bool
	Enabled      *bool

	// IncludeHidden admits nodes whose visible flag is unset. Hidden
	// nodes' subtrees are traversed either way.
	IncludeHidden bool

	// InMenus restricts results to nodes inside a menu context;
	// InMainContent restricts to nodes outside one.
	InMenus       bool
	InMainContent bool

	// MaxDepth bounds traversal depth relative to the search root (0 =
	// the root itself); non-positive values fall back to DefaultMaxDepth.
	MaxDepth int

	// Limit caps the result count; non-positive values fall back to
	// DefaultLimit.
	Limit int
}

// BoolPtr is a convenience for the tri-state criteria fields.
func BoolPtr(b bool) *bool { return &b }

// Find returns the IDs of the nodes under root (root included) that
// satisfy c, in pre-order document order. Traversal stops descending once
// depth exceeds the bound and stops entirely once the limit is reached.
func Find(snap *uitree.Snapshot, root uitree.NodeID, c Criteria) []uitree.NodeID {
	maxDepth := c.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Establish whether the search root is already inside a menu context.
	inMenu := false
	for cur := root; cur != uitree.InvalidNode; cur = snap.Parent(cur) {
		n := snap.Node(cur)
		if n != nil && uitree.MenuContextRole(n.Role) {
			inMenu = true
			break
		}
	}

	var results []uitree.NodeID
	var visit func(id uitree.NodeID, depth int, inMenu bool) bool
	visit = func(id uitree.NodeID, depth int, inMenu bool) bool {
		n := snap.Node(id)
		if n == nil {
			return true
		}
		if uitree.MenuContextRole(n.Role) {
			inMenu = true
		}
		if matches(n, c, inMenu) {
			results = append(results, id)
			if len(results) >= limit {
				return false
			}
		}
		if depth >= maxDepth {
			return true
		}
		for _, child := range snap.Children(id) {
			if !visit(child, depth+1, inMenu) {
				return false
			}
		}
		return true
	}
	visit(root, 0, inMenu)
	return results
}

func matches(n *uitree.Node, c Criteria, inMenu bool) bool {
	if c.Role != "" && n.Role != c.Role {
		return false
	}
	if !typeListMatches(c.ElementTypes, n.Role) {
		return false
	}
	if c.Title != "" && n.Title != c.Title {
		return false
	}
	if c.TitleContains != "" && !uitree.FoldContains(n.Title, c.TitleContains) {
		return false
	}
	if c.Value != "" && n.Value != c.Value {
		return false
	}
	if c.ValueContains != "" && !uitree.FoldContains(n.Value, c.ValueContains) {
		return false
	}
	if c.Description != "" && n.Description != c.Description {
		return false
	}
	if c.DescriptionContains != "" && !uitree.FoldContains(n.Description, c.DescriptionContains) {
		return false
	}
	if c.TextContains != "" && !textContains(n, c.TextContains) {
		return false
	}
	if c.AnyFieldContains != "" && !anyFieldContains(n, c.AnyFieldContains) {
		return false
	}
	if c.Interactable != nil && n.Interactable() != *c.Interactable {
		return false
	}
	if c.Enabled != nil && n.Enabled != *c.Enabled {
		return false
	}
	if !c.IncludeHidden && !n.Visible {
		return false
	}
	if c.InMenus && !inMenu {
		return false
	}
	if c.InMainContent && inMenu {
		return false
	}
	return true
}

func typeListMatches(types []uitree.ElementType, role string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if uitree.TypeMatches(t, role) {
			return true
		}
	}
	return false
}

func textContains(n *uitree.Node, substr string) bool {
	return uitree.FoldContains(n.Title, substr) ||
		uitree.FoldContains(n.Value, substr) ||
		uitree.FoldContains(n.Description, substr)
}

func anyFieldContains(n *uitree.Node, substr string) bool {
	return uitree.FoldContains(n.Role, substr) ||
		uitree.FoldContains(n.Title, substr) ||
		uitree.FoldContains(n.Description, substr) ||
		uitree.FoldContains(n.Value, substr) ||
		uitree.FoldContains(n.Identifier, substr)
}
