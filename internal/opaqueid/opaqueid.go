// Copyright 2025 Joseph Cumines
//
// Reversible opaque tokens for canonical path strings

// Package opaqueid converts canonical element path strings into short
// opaque tokens suitable for wire identifiers, and back. The transform is
// pure and reversible; there is no backing registry, so a token is exactly
// as durable as the path text inside it.
//
// Decode failure is a soft condition by contract: callers treat the
// original string as a raw path instead of propagating an error to end
// users.
package opaqueid

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joeycumines/uipath-mcp/internal/elementpath"
)

// tokenPrefix versions the encoding. A future scheme change bumps the
// prefix so stale tokens fail decode cleanly instead of yielding garbage
// paths.
const tokenPrefix = "uie1_"

// DecodeError reports a token that could not be decoded. Callers are
// expected to fall back to treating the token text as a raw path.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode element token %q: %s", e.Token, e.Reason)
}

// Encode converts a canonical path string into an opaque token. It never
// fails; Decode(Encode(p)) == p for every path string.
func Encode(path string) string {
	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(path))
}

// Decode converts a token back into the path string it encodes. It
// returns a *DecodeError when the token lacks the version prefix, is not
// valid base64, or does not contain a structurally plausible path.
func Decode(token string) (string, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", &DecodeError{Token: token, Reason: "missing token prefix"}
	}
	raw, err := base64.RawURLEncoding.DecodeString(token[len(tokenPrefix):])
	if err != nil {
		return "", &DecodeError{Token: token, Reason: "invalid base64 payload"}
	}
	path := string(raw)
	if !elementpath.IsPath(path) {
		return "", &DecodeError{Token: token, Reason: "payload is not an element path"}
	}
	return path, nil
}

// IsToken is a cheap structural pre-check for the token prefix, mirroring
// elementpath.IsPath. It does not guarantee Decode will succeed.
func IsToken(s string) bool {
	return strings.HasPrefix(s, tokenPrefix)
}
