// Copyright 2025 Joseph Cumines

package opaqueid

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	paths := []string{
		"ui://AXApplication/AXWindow",
		`ui://AXApplication[@bundleID="com.apple.calculator"]/AXWindow[@title="Calculator"]/AXButton[@title="7"]`,
		`ui://AXApplication/AXButton[@title="OK"][2]`,
		`ui://AXApplication/AXButton[@title="weird \/\[\]\@\" value"]`,
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			token := Encode(p)
			if !strings.HasPrefix(token, "uie1_") {
				t.Errorf("token %q missing version prefix", token)
			}
			if !IsToken(token) {
				t.Errorf("IsToken(%q) = false", token)
			}
			got, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != p {
				t.Errorf("Decode(Encode(%q)) = %q", p, got)
			}
		})
	}
}

func TestTokenIsURLSafe(t *testing.T) {
	token := Encode(`ui://AXApplication[@title="a b/c?d&e"]/AXWindow`)
	if strings.ContainsAny(token, "+/= ") {
		t.Errorf("token %q contains characters outside the URL-safe alphabet", token)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"missing prefix", "dWk6Ly9BWEFwcGxpY2F0aW9u"},
		{"wrong prefix", "uie2_dWk6Ly9BWEFwcGxpY2F0aW9u"},
		{"invalid base64", "uie1_!!!not-base64!!!"},
		{"payload not a path", Encode("just some text")},
		{"payload single segment", Encode("ui://AXApplication")},
		{"empty payload", "uie1_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.token)
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Decode(%q) error = %v, want *DecodeError", tt.token, err)
			}
			if decodeErr.Token != tt.token {
				t.Errorf("DecodeError.Token = %q, want %q", decodeErr.Token, tt.token)
			}
		})
	}
}

func TestIsToken(t *testing.T) {
	if IsToken("ui://AXApplication/AXWindow") {
		t.Error("IsToken accepted a raw path")
	}
	if IsToken("") {
		t.Error("IsToken accepted empty string")
	}
	if !IsToken("uie1_garbage") {
		t.Error("IsToken rejected a prefixed string")
	}
}
