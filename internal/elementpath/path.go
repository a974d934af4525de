// Copyright 2025 Joseph Cumines
//
// Path value types and the canonical textual form

// Package elementpath addresses nodes in a fetched accessibility tree with
// stable textual paths.
//
// A path names one element relative to a scope root:
//
//	ui://AXApplication[@bundle="com.apple.calculator"]/AXWindow/AXButton[@title="7"]
//
// Each segment is a role tag, an optional predicate list narrowing the
// candidate children, and an optional 1-based index resolving residual
// ambiguity among matching siblings. The package provides the grammar
// parser, a resolver that walks a parsed path against a live snapshot, and
// a generator that emits a canonical path for a known node, the inverse
// of resolution. Paths are valid only within the snapshot lifetime that
// produced them; nothing here guarantees stability across re-fetches.
package elementpath

import (
	"fmt"
	"strings"
)

// Scheme is the fixed prefix of every element path.
const Scheme = "ui://"

// Op is a predicate comparison operator.
type Op int

const (
	// OpEquals requires an exact string match.
	OpEquals Op = iota
	// OpContains requires a case-insensitive substring match.
	OpContains
)

// String returns the operator's textual form.
func (o Op) String() string {
	if o == OpContains {
		return "~="
	}
	return "="
}

// Predicate is one attribute constraint of a segment. Value is stored
// unescaped.
type Predicate struct {
	Key   string
	Op    Op
	Value string
}

// String returns the predicate in path syntax, with the value escaped.
func (p Predicate) String() string {
	return fmt.Sprintf(`@%s%s"%s"`, p.Key, p.Op, escapeValue(p.Value))
}

// Segment is one step of a path: a role tag, optional predicates, and an
// optional explicit 1-based index. Index 0 means no index.
type Segment struct {
	Role       string
	Predicates []Predicate
	Index      int
}

// String returns the segment in path syntax.
func (s Segment) String() string {
	var b strings.Builder
	b.WriteString(s.Role)
	if len(s.Predicates) > 0 {
		b.WriteByte('[')
		for i, p := range s.Predicates {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.String())
		}
		b.WriteByte(']')
	}
	if s.Index > 0 {
		fmt.Fprintf(&b, "[%d]", s.Index)
	}
	return b.String()
}

// Path is an immutable ordered sequence of segments. Equal paths are
// structurally equal. The zero value is the empty path.
type Path struct {
	segments []Segment
}

// NewPath builds a path from segments. The segments are copied.
func NewPath(segments ...Segment) Path {
	if len(segments) == 0 {
		return Path{}
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return Path{segments: out}
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Segment returns the i-th segment (0-based).
func (p Path) Segment(i int) Segment { return p.segments[i] }

// Segments returns a copy of the segment list.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Prefix returns the path truncated to its first n segments. Used for
// partial-path diagnostics in resolution errors.
func (p Path) Prefix(n int) Path {
	if n > len(p.segments) {
		n = len(p.segments)
	}
	return NewPath(p.segments[:n]...)
}

// FullyQualified reports whether the path is root-anchored with at least
// one segment separator, i.e. has two or more segments.
func (p Path) FullyQualified() bool { return len(p.segments) >= 2 }

// String returns the canonical textual form. Parse(p.String()) yields a
// path equal to p.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	for i, s := range p.segments {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Equal reports structural equality.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		o := other.segments[i]
		if s.Role != o.Role || s.Index != o.Index || len(s.Predicates) != len(o.Predicates) {
			return false
		}
		for j, pr := range s.Predicates {
			if pr != o.Predicates[j] {
				return false
			}
		}
	}
	return true
}

// reservedValueChars are the characters that must be escaped inside a
// quoted predicate value so that values containing path syntax round-trip
// through generate and parse.
const reservedValueChars = `\"/[]@`

var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`/`, `\/`,
	`[`, `\[`,
	`]`, `\]`,
	`@`, `\@`,
)

// escapeValue escapes every reserved character in a predicate value.
func escapeValue(s string) string {
	if !strings.ContainsAny(s, reservedValueChars) {
		return s
	}
	return valueEscaper.Replace(s)
}
