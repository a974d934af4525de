// Copyright 2025 Joseph Cumines
//
// Path grammar parser

package elementpath

import (
	"fmt"
	"strings"
)

// maxIndex bounds the explicit segment index.
const maxIndex = 1 << 20

// SyntaxError reports a malformed path. Offset is the byte offset into the
// input where parsing failed; Segment is the 0-based index of the segment
// being parsed at that point.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type SyntaxError struct {
	Msg     string
	Offset  int
	Segment int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid path syntax at offset %d (segment %d): %s", e.Offset, e.Segment, e.Msg)
}

// IsPath is a cheap structural pre-check: scheme prefix plus at least one
// segment separator after it. Callers use it to decide whether an incoming
// string should be treated as a path at all before attempting a full
// Parse.
func IsPath(text string) bool {
	if !strings.HasPrefix(text, Scheme) {
		return false
	}
	return strings.Contains(text[len(Scheme):], "/")
}

// Parse converts a textual path into its structured form. It returns a
// *SyntaxError for a malformed scheme, empty role, unbalanced brackets,
// unescaped reserved characters inside a quoted value, a bad escape, or a
// non-numeric or out-of-bounds index.
func Parse(text string) (Path, error) {
	p := &parser{text: text}
	if !strings.HasPrefix(text, Scheme) {
		return Path{}, p.errorf("missing %q scheme prefix", Scheme)
	}
	p.pos = len(Scheme)

	var segments []Segment
	for {
		seg, err := p.parseSegment()
		if err != nil {
			return Path{}, err
		}
		segments = append(segments, seg)
		p.segment++
		if p.pos >= len(text) {
			break
		}
		// parseSegment stops only at '/' or end of input.
		p.pos++ // consume '/'
		if p.pos >= len(text) {
			return Path{}, p.errorf("trailing segment separator")
		}
	}
	return Path{segments: segments}, nil
}

// parser is a single-pass scanner over one path string.
type parser struct {
	text    string
	pos     int
	segment int
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Msg:     fmt.Sprintf(format, args...),
		Offset:  p.pos,
		Segment: p.segment,
	}
}

func (p *parser) parseSegment() (Segment, error) {
	role, err := p.parseRole()
	if err != nil {
		return Segment{}, err
	}
	seg := Segment{Role: role}

	// Bracket groups: at most one predicate group followed by at most one
	// index group.
	sawIndex := false
	for p.pos < len(p.text) && p.text[p.pos] == '[' {
		if sawIndex {
			return Segment{}, p.errorf("unexpected bracket group after index")
		}
		if p.pos+1 < len(p.text) && p.text[p.pos+1] == '@' {
			if len(seg.Predicates) > 0 {
				return Segment{}, p.errorf("multiple predicate groups in one segment")
			}
			preds, err := p.parsePredicates()
			if err != nil {
				return Segment{}, err
			}
			seg.Predicates = preds
		} else {
			idx, err := p.parseIndex()
			if err != nil {
				return Segment{}, err
			}
			seg.Index = idx
			sawIndex = true
		}
	}

	if p.pos < len(p.text) && p.text[p.pos] != '/' {
		return Segment{}, p.errorf("unexpected character %q", p.text[p.pos])
	}
	return seg, nil
}

func (p *parser) parseRole() (string, error) {
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c == '/' || c == '[' {
			break
		}
		if strings.IndexByte(`]@"\,`, c) >= 0 {
			return "", p.errorf("reserved character %q in role", c)
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("empty role")
	}
	return p.text[start:p.pos], nil
}

// parsePredicates parses "[@key op "value"(,@key op "value")*]" with p.pos
// on the opening bracket.
func (p *parser) parsePredicates() ([]Predicate, error) {
	p.pos++ // consume '['
	var preds []Predicate
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
		if p.pos >= len(p.text) {
			return nil, p.errorf("unterminated predicate group")
		}
		switch p.text[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return preds, nil
		default:
			return nil, p.errorf("expected ',' or ']' after predicate, got %q", p.text[p.pos])
		}
	}
}

func (p *parser) parsePredicate() (Predicate, error) {
	if p.pos >= len(p.text) || p.text[p.pos] != '@' {
		return Predicate{}, p.errorf("predicate must start with '@'")
	}
	p.pos++

	keyStart := p.pos
	for p.pos < len(p.text) && p.text[p.pos] != '=' && p.text[p.pos] != '~' {
		c := p.text[p.pos]
		if strings.IndexByte(`/[]@",\`, c) >= 0 {
			return Predicate{}, p.errorf("reserved character %q in predicate key", c)
		}
		p.pos++
	}
	if p.pos == keyStart {
		return Predicate{}, p.errorf("empty predicate key")
	}
	key := p.text[keyStart:p.pos]

	op := OpEquals
	if p.pos < len(p.text) && p.text[p.pos] == '~' {
		op = OpContains
		p.pos++
	}
	if p.pos >= len(p.text) || p.text[p.pos] != '=' {
		return Predicate{}, p.errorf("expected '=' in predicate")
	}
	p.pos++

	value, err := p.parseQuotedValue()
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Key: key, Op: op, Value: value}, nil
}

// parseQuotedValue parses a double-quoted value, unescaping reserved
// characters. An unescaped reserved character inside the quotes is
// rejected rather than passed through, so only generator-escaped values
// round-trip.
func (p *parser) parseQuotedValue() (string, error) {
	if p.pos >= len(p.text) || p.text[p.pos] != '"' {
		return "", p.errorf("predicate value must be quoted")
	}
	p.pos++

	var b strings.Builder
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 >= len(p.text) {
				return "", p.errorf("dangling escape at end of input")
			}
			esc := p.text[p.pos+1]
			if strings.IndexByte(reservedValueChars, esc) < 0 {
				return "", p.errorf("invalid escape %q", `\`+string(esc))
			}
			b.WriteByte(esc)
			p.pos += 2
		case '/', '[', ']', '@':
			return "", p.errorf("unescaped reserved character %q in value", c)
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated quoted value")
}

// parseIndex parses "[n]" with p.pos on the opening bracket. Indices are
// 1-based.
func (p *parser) parseIndex() (int, error) {
	p.pos++ // consume '['
	start := p.pos
	n := 0
	for p.pos < len(p.text) && p.text[p.pos] != ']' {
		c := p.text[p.pos]
		if c < '0' || c > '9' {
			return 0, p.errorf("non-numeric index")
		}
		// No real tree has a million siblings; reject before n can
		// overflow.
		if n >= maxIndex {
			return 0, p.errorf("index too large")
		}
		n = n*10 + int(c-'0')
		p.pos++
	}
	if p.pos >= len(p.text) {
		return 0, p.errorf("unterminated index bracket")
	}
	if p.pos == start {
		return 0, p.errorf("empty index")
	}
	p.pos++ // consume ']'
	if n < 1 {
		return 0, p.errorf("index must be >= 1")
	}
	return n, nil
}
