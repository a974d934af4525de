// Copyright 2025 Joseph Cumines
//
// Shared text matching policy

package uitree

import "strings"

// FoldContains reports whether s contains substr ignoring case.
//
// This is the single substring-matching policy for the whole core: path
// predicate "contains" operators and every *Contains filter criterion go
// through here, so "contains" is uniformly case-insensitive. Exact-match
// predicates and criteria remain case-sensitive.
func FoldContains(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
