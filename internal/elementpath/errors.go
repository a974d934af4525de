// Copyright 2025 Joseph Cumines
//
// Resolution and generation error taxonomy

package elementpath

import (
	"fmt"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// NotFoundError reports that a path segment matched no child. Segment is
// the 0-based index of the failing segment; the segments before it were
// consumed successfully.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type NotFoundError struct {
	Path    Path
	Segment int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found: segment %d (%s) of %s matched no children (resolved through %s)",
		e.Segment, e.Path.Segment(e.Segment), e.Path, e.Path.Prefix(e.Segment))
}

// AmbiguousError reports that a segment without an explicit index matched
// more than one sibling.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type AmbiguousError struct {
	Path       Path
	Segment    int
	Candidates int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous path: segment %d (%s) of %s matched %d siblings; append an index like [1] to disambiguate",
		e.Segment, e.Path.Segment(e.Segment), e.Path, e.Candidates)
}

// IndexOutOfRangeError reports that a segment's explicit index exceeded
// the matching candidate count.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type IndexOutOfRangeError struct {
	Path       Path
	Segment    int
	Index      int
	Candidates int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: segment %d (%s) of %s requested candidate %d of %d",
		e.Segment, e.Path.Segment(e.Segment), e.Path, e.Index, e.Candidates)
}

// BrokenAncestryError reports that a node's ancestry chain does not reach
// a scope root, so no fully qualified path can be generated. This is a
// soft failure: callers fall back to any previously known raw identifier
// instead of aborting.
type BrokenAncestryError struct {
	Node uitree.NodeID
}

func (e *BrokenAncestryError) Error() string {
	return fmt.Sprintf("broken ancestry chain: node %d is not reachable from a scope root in this snapshot", e.Node)
}
