// Copyright 2025 Joseph Cumines

package server

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newFileAuditLogger(t *testing.T) (*AuditLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewAuditLogger(logPath)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, logPath
}

func TestAuditLoggerDisabledByEmptyPath(t *testing.T) {
	logger, err := NewAuditLogger("")
	if err != nil {
		t.Fatalf("NewAuditLogger(\"\"): %v", err)
	}
	if logger.IsEnabled() {
		t.Error("logger enabled without a file path")
	}

	// Logging and closing a disabled logger is a no-op.
	logger.LogToolCall("resolve_element", json.RawMessage(`{"element":"ui://AXApplication"}`), "ok", time.Millisecond)
	if err := logger.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestAuditLoggerNilReceiver(t *testing.T) {
	var logger *AuditLogger
	if logger.IsEnabled() {
		t.Error("nil logger reported enabled")
	}
	logger.LogToolCall("find_elements", json.RawMessage(`{}`), "ok", time.Millisecond)
}

func TestAuditLoggerInvalidPath(t *testing.T) {
	if _, err := NewAuditLogger(filepath.Join(t.TempDir(), "missing", "audit.log")); err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}

func TestAuditLoggerUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	restricted := filepath.Join(t.TempDir(), "restricted")
	if err := os.Mkdir(restricted, 0o000); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	defer os.Chmod(restricted, 0o755)

	if _, err := NewAuditLogger(filepath.Join(restricted, "audit.log")); err == nil {
		t.Error("expected permission error")
	}
}

func TestAuditLoggerLogToolCall(t *testing.T) {
	logger, logPath := newFileAuditLogger(t)

	args := json.RawMessage(`{"element":"ui://AXApplication[@bundleID=\"com.apple.TextEdit\"]/AXWindow"}`)
	logger.LogToolCall("resolve_element", args, "ok", 50*time.Millisecond)
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v\n%s", err, content)
	}
	for _, field := range []string{"time", "level", "msg", "tool", "arguments", "status", "duration_seconds", "timestamp"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("entry missing field %q: %v", field, entry)
		}
	}
	if entry["msg"] != "tool_call" {
		t.Errorf("msg = %v, want tool_call", entry["msg"])
	}
	if entry["tool"] != "resolve_element" {
		t.Errorf("tool = %v, want resolve_element", entry["tool"])
	}
	if entry["status"] != "ok" {
		t.Errorf("status = %v, want ok", entry["status"])
	}
	if dur, _ := entry["duration_seconds"].(float64); dur != 0.05 {
		t.Errorf("duration_seconds = %v, want 0.05", entry["duration_seconds"])
	}
	if arguments, _ := entry["arguments"].(string); !strings.Contains(arguments, "com.apple.TextEdit") {
		t.Errorf("arguments lost the element path: %v", entry["arguments"])
	}
}

func TestRedactArguments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "element path passes through",
			input:    `{"element":"ui://AXApplication/AXWindow","scope":"focused"}`,
			contains: []string{"ui://AXApplication/AXWindow", "focused"},
			excludes: []string{"REDACTED"},
		},
		{
			name:     "bridge cert material",
			input:    `{"bridge_addr":"localhost:50051","cert_file":"/etc/bridge/client.pem"}`,
			contains: []string{"localhost:50051", "REDACTED"},
			excludes: []string{"client.pem"},
		},
		{
			name:     "token-shaped key",
			input:    `{"access_token":"eyJhbGc","application":"com.apple.TextEdit"}`,
			contains: []string{"com.apple.TextEdit", "REDACTED"},
			excludes: []string{"eyJhbGc"},
		},
		{
			name:     "key marker inside a longer key",
			input:    `{"bridge_client_secret_v2":"hunter2"}`,
			contains: []string{"REDACTED"},
			excludes: []string{"hunter2"},
		},
		{
			name:     "nested map",
			input:    `{"bridge":{"password":"hidden","addr":"localhost"}}`,
			contains: []string{"REDACTED", "localhost"},
			excludes: []string{"hidden"},
		},
		{
			name:     "map inside array",
			input:    `{"targets":[{"title":"Save","api_key":"sk-123"}]}`,
			contains: []string{"Save", "REDACTED"},
			excludes: []string{"sk-123"},
		},
		{
			name:     "empty args",
			input:    ``,
			contains: []string{"{}"},
		},
		{
			name:     "invalid json",
			input:    `{not json`,
			contains: []string{"unparseable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactArguments(json.RawMessage(tt.input))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("redacted %q missing %q", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("redacted %q leaked %q", got, unwanted)
				}
			}
		})
	}
}

func TestSensitiveKeyFoldsCase(t *testing.T) {
	for _, key := range []string{"PASSWORD", "certFile", "Access_Token", "TLSCertPath"} {
		if !sensitiveKey(key) {
			t.Errorf("sensitiveKey(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"element", "title_contains", "max_depth", "application"} {
		if sensitiveKey(key) {
			t.Errorf("sensitiveKey(%q) = true, want false", key)
		}
	}
}

func TestAuditLoggerConcurrentWrites(t *testing.T) {
	logger, logPath := newFileAuditLogger(t)

	const goroutines = 8
	const writes = 25

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for j := range writes {
				logger.LogToolCall("find_elements", json.RawMessage(`{"role":"AXButton"}`), "ok", time.Duration(j)*time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(logPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		lines++
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Errorf("line %d is not valid JSON: %v", lines, err)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != goroutines*writes {
		t.Errorf("got %d lines, want %d", lines, goroutines*writes)
	}
}

func TestAuditLoggerCloseIdempotent(t *testing.T) {
	logger, logPath := newFileAuditLogger(t)
	logger.LogToolCall("ping_bridge", json.RawMessage(`{}`), "ok", time.Millisecond)

	if err := logger.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	// Later closes must not panic; the error value is unspecified.
	logger.Close()
	logger.Close()

	// Writes after close must not panic either.
	logger.LogToolCall("ping_bridge", json.RawMessage(`{}`), "ok", time.Millisecond)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(content), "ping_bridge") {
		t.Error("entry written before close is missing")
	}
}

func TestAuditLoggerAppendsAcrossSessions(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	for i, tool := range []string{"describe_element", "find_elements"} {
		logger, err := NewAuditLogger(logPath)
		if err != nil {
			t.Fatalf("NewAuditLogger (session %d): %v", i+1, err)
		}
		logger.LogToolCall(tool, json.RawMessage(`{}`), "ok", time.Millisecond)
		if err := logger.Close(); err != nil {
			t.Fatalf("Close (session %d): %v", i+1, err)
		}
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "describe_element") || !strings.Contains(lines[1], "find_elements") {
		t.Errorf("sessions did not append in order:\n%s", content)
	}
}
