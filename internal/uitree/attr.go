// Copyright 2025 Joseph Cumines
//
// Tagged-variant values for the open attribute bag

package uitree

import (
	"fmt"
	"strconv"
)

// AttrKind discriminates AttrValue variants.
type AttrKind int

const (
	// AttrString is a textual attribute value.
	AttrString AttrKind = iota
	// AttrBool is a boolean attribute value.
	AttrBool
	// AttrNumber is a numeric attribute value (stored as float64, matching
	// the wire representation).
	AttrNumber
	// AttrMap is a nested string-keyed attribute map.
	AttrMap
)

// AttrValue is a tagged variant for heterogeneous attribute values.
// Consumers switch on Kind instead of performing unchecked casts.
type AttrValue struct {
	kind AttrKind
	s    string
	b    bool
	n    float64
	m    map[string]AttrValue
}

// StringAttr returns a string-kind value.
func StringAttr(s string) AttrValue { return AttrValue{kind: AttrString, s: s} }

// BoolAttr returns a bool-kind value.
func BoolAttr(b bool) AttrValue { return AttrValue{kind: AttrBool, b: b} }

// NumberAttr returns a number-kind value.
func NumberAttr(n float64) AttrValue { return AttrValue{kind: AttrNumber, n: n} }

// MapAttr returns a map-kind value. The map is retained, not copied.
func MapAttr(m map[string]AttrValue) AttrValue { return AttrValue{kind: AttrMap, m: m} }

// Kind returns the variant tag.
func (v AttrValue) Kind() AttrKind { return v.kind }

// Str returns the string payload; zero value unless Kind is AttrString.
func (v AttrValue) Str() string { return v.s }

// Bool returns the bool payload; zero value unless Kind is AttrBool.
func (v AttrValue) Bool() bool { return v.b }

// Number returns the numeric payload; zero value unless Kind is AttrNumber.
func (v AttrValue) Number() float64 { return v.n }

// Map returns the nested map payload; nil unless Kind is AttrMap.
func (v AttrValue) Map() map[string]AttrValue { return v.m }

// Text renders the value as a string for display and for path predicate
// matching. Maps render as their element count; predicates over nested
// maps are not supported.
func (v AttrValue) Text() string {
	switch v.kind {
	case AttrString:
		return v.s
	case AttrBool:
		return strconv.FormatBool(v.b)
	case AttrNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case AttrMap:
		return fmt.Sprintf("{%d entries}", len(v.m))
	default:
		return ""
	}
}

// AttrFromAny converts a decoded JSON value into an AttrValue. Unsupported
// payloads (arrays, null) degrade to their fmt rendering as a string so no
// attribute is silently dropped.
func AttrFromAny(v any) AttrValue {
	switch x := v.(type) {
	case string:
		return StringAttr(x)
	case bool:
		return BoolAttr(x)
	case float64:
		return NumberAttr(x)
	case int:
		return NumberAttr(float64(x))
	case map[string]any:
		m := make(map[string]AttrValue, len(x))
		for k, e := range x {
			m[k] = AttrFromAny(e)
		}
		return MapAttr(m)
	case nil:
		return StringAttr("")
	default:
		return StringAttr(fmt.Sprintf("%v", x))
	}
}
