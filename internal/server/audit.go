// Copyright 2025 Joseph Cumines
//
// Audit logging for MCP tool invocations

package server

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// AuditLogger appends one JSON line per tool invocation: tool name,
// redacted arguments, result status, and handler duration. An empty
// file path disables it; a nil *AuditLogger is also safe to call.
type AuditLogger struct {
	logger  *slog.Logger
	file    *os.File
	enabled bool
	mu      sync.RWMutex
}

// redactedKeyMarkers are substrings of argument keys whose values must
// not reach the audit log. Matching is on the lowercased key, so bridge
// TLS material ("certFile") and credential-shaped keys ("accessToken",
// "client_secret") are caught without enumerating every spelling.
var redactedKeyMarkers = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"api_key",
	"apikey",
	"credential",
	"private_key",
	"cert",
	"authorization",
	"bearer",
	"cookie",
	"session_id",
}

// NewAuditLogger opens filePath for appending and returns a logger
// writing slog JSON to it. An empty filePath returns a disabled logger.
func NewAuditLogger(filePath string) (*AuditLogger, error) {
	if filePath == "" {
		return &AuditLogger{}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &AuditLogger{
		logger: slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
		file:    file,
		enabled: true,
	}, nil
}

// Close closes the underlying log file. Safe to call more than once.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// IsEnabled reports whether entries are being written.
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LogToolCall records one tool invocation. Argument values under
// sensitive keys are replaced before anything touches the log file.
func (a *AuditLogger) LogToolCall(tool string, args json.RawMessage, status string, duration time.Duration) {
	if !a.IsEnabled() {
		return
	}

	a.mu.RLock()
	logger := a.logger
	a.mu.RUnlock()

	if logger == nil {
		return
	}

	logger.Info("tool_call",
		slog.String("tool", tool),
		slog.String("arguments", redactArguments(args)),
		slog.String("status", status),
		slog.Float64("duration_seconds", duration.Seconds()),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

// redactArguments renders args as compact JSON with sensitive values
// replaced. Unparseable input gets a placeholder rather than leaking
// raw bytes into the log.
func redactArguments(args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}

	var parsed map[string]any
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "[unparseable]"
	}

	redactMap(parsed)

	redacted, err := json.Marshal(parsed)
	if err != nil {
		return "[error]"
	}
	return string(redacted)
}

func redactMap(m map[string]any) {
	for key, value := range m {
		if sensitiveKey(key) {
			m[key] = "[REDACTED]"
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			redactMap(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					redactMap(nested)
				}
			}
		}
	}
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range redactedKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
