// Copyright 2025 Joseph Cumines
//
// Path resolution against a live tree

package elementpath

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joeycumines/uipath-mcp/internal/axclient"
	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// Resolver walks parsed paths against the live tree exposed by an
// accessor. It is stateless between calls and safe for concurrent use if
// the accessor is.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Resolver struct {
	ax         axclient.Accessor
	logger     *slog.Logger
	fetchDepth int
}

// NewResolver creates a resolver. fetchDepth bounds every fetch the
// resolver issues; when a path walks past the loaded depth the resolver
// re-fetches that deep again from the current node. logger may be nil.
func NewResolver(ax axclient.Accessor, logger *slog.Logger, fetchDepth int) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if fetchDepth < 1 {
		fetchDepth = 1
	}
	return &Resolver{ax: ax, logger: logger, fetchDepth: fetchDepth}
}

// Resolve walks p against the tree rooted at scope and returns the
// snapshot holding the result plus the resolved node's ID within it.
//
// For the system scope, every segment (the first included) selects among
// children, starting from the system root's children. For narrower scopes
// the fetched root is itself the element the first segment addresses, so
// the first segment is matched against the root directly.
//
// Resolution may issue additional fetches when the path is not yet
// exhausted and the loaded snapshot does not extend past the current
// node; it never mutates previously returned nodes and never retries.
func (r *Resolver) Resolve(ctx context.Context, p Path, scope axclient.Scope) (*uitree.Snapshot, uitree.NodeID, error) {
	if p.Len() == 0 {
		return nil, uitree.InvalidNode, fmt.Errorf("empty path")
	}

	snap, err := r.ax.FetchRoot(ctx, scope, r.fetchDepth)
	if err != nil {
		return nil, uitree.InvalidNode, err
	}
	current := snap.Root()
	if current == uitree.InvalidNode {
		return nil, uitree.InvalidNode, &NotFoundError{Path: p, Segment: 0}
	}

	start := 0
	if scope.Kind != axclient.ScopeSystem {
		if !segmentMatches(snap, current, p.Segment(0)) {
			return nil, uitree.InvalidNode, &NotFoundError{Path: p, Segment: 0}
		}
		start = 1
	}

	for i := start; i < p.Len(); i++ {
		seg := p.Segment(i)

		children := snap.Children(current)
		if len(children) == 0 && snap.Node(current).Truncated {
			// The loaded snapshot ends here but the path continues: fetch a
			// fresh, deeper subtree rooted at the current node.
			r.logger.Debug("resolver re-fetching past loaded depth",
				slog.String("path", p.String()),
				slog.Int("segment", i))
			snap, err = r.ax.FetchChildren(ctx, snap, current, r.fetchDepth)
			if err != nil {
				return nil, uitree.InvalidNode, err
			}
			current = snap.Root()
			children = snap.Children(current)
		}

		var candidates []uitree.NodeID
		for _, c := range children {
			if segmentMatches(snap, c, seg) {
				candidates = append(candidates, c)
			}
		}

		// A single candidate always wins; the explicit index only selects
		// among several, so a stale index on a now-unique segment still
		// resolves.
		switch {
		case len(candidates) == 0:
			return nil, uitree.InvalidNode, &NotFoundError{Path: p, Segment: i}
		case len(candidates) == 1:
			current = candidates[0]
		case seg.Index > 0:
			if seg.Index > len(candidates) {
				return nil, uitree.InvalidNode, &IndexOutOfRangeError{
					Path: p, Segment: i, Index: seg.Index, Candidates: len(candidates),
				}
			}
			current = candidates[seg.Index-1]
		default:
			return nil, uitree.InvalidNode, &AmbiguousError{
				Path: p, Segment: i, Candidates: len(candidates),
			}
		}
	}

	return snap, current, nil
}

// segmentMatches reports whether the node satisfies the segment's role and
// every predicate. The explicit index is not considered here; it selects
// among matches.
func segmentMatches(snap *uitree.Snapshot, id uitree.NodeID, seg Segment) bool {
	n := snap.Node(id)
	if n == nil || n.Role != seg.Role {
		return false
	}
	for _, pred := range seg.Predicates {
		actual, ok := predicateValue(n, pred.Key)
		if !ok {
			return false
		}
		switch pred.Op {
		case OpEquals:
			if actual != pred.Value {
				return false
			}
		case OpContains:
			if !uitree.FoldContains(actual, pred.Value) {
				return false
			}
		}
	}
	return true
}

// predicateValue looks up the node value a predicate key addresses. The
// well-known keys map to the primary textual attributes; any other key
// reads the open attribute bag.
func predicateValue(n *uitree.Node, key string) (string, bool) {
	switch key {
	case "title":
		return n.Title, true
	case "value":
		return n.Value, true
	case "description":
		return n.Description, true
	case "id":
		return n.Identifier, true
	}
	v, ok := n.Attrs[key]
	if !ok {
		return "", false
	}
	return v.Text(), true
}
