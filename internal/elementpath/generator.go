// Copyright 2025 Joseph Cumines
//
// Canonical path generation from ancestry chains

package elementpath

import (
	"log/slog"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// systemRootRole is the role of the synthetic system-wide root. It is
// implicit in system-scope resolution and therefore never emitted as a
// path segment.
const systemRootRole = "AXSystemWide"

// Generator emits canonical paths for nodes of a snapshot, the inverse of
// resolution. logger may be nil.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a generator.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{logger: logger}
}

// Generate walks id's ancestry to the snapshot root and emits a fully
// qualified path that resolves back to id within the same snapshot.
//
// Predicates are opportunistic (title, description, identifier, and the
// bundle identifier on the root segment) and not guaranteed minimal or
// unique; when a segment still matches several siblings, an explicit
// 1-based index pins the node in document order. If the snapshot is rooted
// mid-tree the ancestry chain cannot reach a scope root and Generate
// returns *BrokenAncestryError, a soft failure the caller recovers from
// by falling back to a previously known raw identifier.
//
// The generated string is memoized on the snapshot; the memo is valid only
// within it.
func (g *Generator) Generate(snap *uitree.Snapshot, id uitree.NodeID) (Path, error) {
	if snap.Node(id) == nil {
		return Path{}, &BrokenAncestryError{Node: id}
	}
	if memo := snap.CanonicalPath(id); memo != "" {
		if p, err := Parse(memo); err == nil {
			return p, nil
		}
		// Corrupt memo; fall through and regenerate.
	}
	if !snap.Anchored() {
		return Path{}, &BrokenAncestryError{Node: id}
	}

	// One retry from the deepest available ancestry before giving up on a
	// path that is not fully qualified.
	var p Path
	for attempt := 0; attempt < 2; attempt++ {
		p = g.build(snap, id)
		if p.FullyQualified() {
			snap.SetCanonicalPath(id, p.String())
			return p, nil
		}
		g.logger.Debug("generated path not fully qualified, retrying",
			slog.Int("node", int(id)),
			slog.String("path", p.String()))
	}
	return Path{}, &BrokenAncestryError{Node: id}
}

// GenerateString is Generate rendered to the canonical textual form,
// served from the per-snapshot memo when present.
func (g *Generator) GenerateString(snap *uitree.Snapshot, id uitree.NodeID) (string, error) {
	if memo := snap.CanonicalPath(id); memo != "" {
		return memo, nil
	}
	p, err := g.Generate(snap, id)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

func (g *Generator) build(snap *uitree.Snapshot, id uitree.NodeID) Path {
	// Ancestry chain root -> id. Arena construction guarantees the chain
	// terminates at the snapshot root.
	var chain []uitree.NodeID
	for cur := id; cur != uitree.InvalidNode; cur = snap.Parent(cur) {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	// The synthetic system root is implicit in system-scope resolution.
	if len(chain) > 0 && snap.Node(chain[0]).Role == systemRootRole {
		chain = chain[1:]
	}

	segments := make([]Segment, 0, len(chain))
	for i, cur := range chain {
		seg := Segment{
			Role:       snap.Node(cur).Role,
			Predicates: identifyingPredicates(snap.Node(cur), i == 0),
		}
		if idx, total := siblingPosition(snap, cur, seg); total > 1 {
			seg.Index = idx
		}
		segments = append(segments, seg)
	}
	return NewPath(segments...)
}

// identifyingPredicates picks the opportunistic predicate set for one
// ancestor: title, description and identifier when present, plus the
// bundle identifier on the root segment.
func identifyingPredicates(n *uitree.Node, isRoot bool) []Predicate {
	var preds []Predicate
	if n.Title != "" {
		preds = append(preds, Predicate{Key: "title", Op: OpEquals, Value: n.Title})
	}
	if n.Description != "" {
		preds = append(preds, Predicate{Key: "description", Op: OpEquals, Value: n.Description})
	}
	if n.Identifier != "" {
		preds = append(preds, Predicate{Key: "id", Op: OpEquals, Value: n.Identifier})
	}
	if isRoot {
		if v, ok := n.Attrs["bundleID"]; ok && v.Text() != "" {
			preds = append(preds, Predicate{Key: "bundleID", Op: OpEquals, Value: v.Text()})
		}
	}
	return preds
}

// siblingPosition returns id's 1-based position among the siblings that
// match seg's role and predicates, and the total count of such siblings.
// Mirrors the resolver's candidate ordering so an emitted index selects
// this exact node.
func siblingPosition(snap *uitree.Snapshot, id uitree.NodeID, seg Segment) (pos, total int) {
	parent := snap.Parent(id)
	if parent == uitree.InvalidNode {
		return 1, 1
	}
	for _, sib := range snap.Children(parent) {
		if !segmentMatches(snap, sib, seg) {
			continue
		}
		total++
		if sib == id {
			pos = total
		}
	}
	return pos, total
}
