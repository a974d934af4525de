// Copyright 2025 Joseph Cumines
//
// MCP server implementation

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/uipath-mcp/internal/axclient"
	"github.com/joeycumines/uipath-mcp/internal/config"
	"github.com/joeycumines/uipath-mcp/internal/elementpath"
	"github.com/joeycumines/uipath-mcp/internal/transport"
)

// MCPServer represents an MCP server
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type MCPServer struct {
	ax        axclient.Accessor
	bridge    *axclient.GRPCAccessor
	resolver  *elementpath.Resolver
	generator *elementpath.Generator
	ctx       context.Context
	cfg       *config.Config
	logger    *slog.Logger
	audit     *AuditLogger
	metrics   *transport.MetricsRegistry
	limiter   *transport.RateLimiter
	tools     map[string]*Tool
	cancel    context.CancelFunc
	mu        sync.RWMutex
}

// Tool represents an MCP tool
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]interface{}
	Name        string
	Description string
}

// ToolCall represents a tool call request
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer creates a new MCP server connected to the accessibility
// bridge named by the configuration.
func NewMCPServer(cfg *config.Config, logger *slog.Logger) (*MCPServer, error) {
	bridge, err := axclient.DialBridge(cfg.BridgeAddr, cfg.BridgeTLS, cfg.BridgeCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge: %w", err)
	}

	s, err := NewMCPServerWithAccessor(cfg, bridge, logger)
	if err != nil {
		bridge.Close()
		return nil, err
	}
	s.bridge = bridge
	return s, nil
}

// NewMCPServerWithAccessor creates an MCP server over an existing
// accessor. Used directly by tests; ping_bridge reports an error when the
// accessor is not a bridge connection.
func NewMCPServerWithAccessor(cfg *config.Config, ax axclient.Accessor, logger *slog.Logger) (*MCPServer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	audit, err := NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	metrics := transport.DefaultMetrics()
	instrumented := newInstrumentedAccessor(ax, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	s := &MCPServer{
		ax:        instrumented,
		resolver:  elementpath.NewResolver(instrumented, logger, cfg.DefaultFetchDepth),
		generator: elementpath.NewGenerator(logger),
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		logger:    logger,
		audit:     audit,
		metrics:   metrics,
		limiter:   transport.NewRateLimiter(float64(cfg.RateLimitRPS)),
		tools:     make(map[string]*Tool),
	}

	s.registerTools()
	return s, nil
}

// Shutdown gracefully shuts down the server
func (s *MCPServer) Shutdown() {
	s.cancel()
	if s.bridge != nil {
		s.bridge.Close()
	}
	if s.audit != nil {
		s.audit.Close()
	}
	s.logger.Info("shutting down MCP server")
}

// registerTools registers all available tools
func (s *MCPServer) registerTools() {
	scopeProperty := map[string]interface{}{
		"type":        "string",
		"description": "Addressing root: focused application (default), one application, or the whole system",
		"enum":        []string{"focused", "application", "system"},
	}
	bundleProperty := map[string]interface{}{
		"type":        "string",
		"description": "Bundle identifier, required when scope is 'application'",
	}

	s.tools = map[string]*Tool{
		"resolve_element": {
			Name:        "resolve_element",
			Description: "Resolve an element path or opaque element ID to a live UI element",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"element": map[string]interface{}{
						"type":        "string",
						"description": "An element path (ui://...) or an opaque element ID",
					},
					"scope":     scopeProperty,
					"bundle_id": bundleProperty,
				},
				"required": []string{"element"},
			},
			Handler: s.handleResolveElement,
		},
		"describe_element": {
			Name:        "describe_element",
			Description: "Return the full state of one UI element, including its canonical path and ID",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"element": map[string]interface{}{
						"type":        "string",
						"description": "An element path (ui://...) or an opaque element ID",
					},
					"scope":     scopeProperty,
					"bundle_id": bundleProperty,
				},
				"required": []string{"element"},
			},
			Handler: s.handleDescribeElement,
		},
		"find_elements": {
			Name:        "find_elements",
			Description: "Find UI elements matching criteria such as role, type, text, and interactability",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scope":     scopeProperty,
					"bundle_id": bundleProperty,
					"role": map[string]interface{}{
						"type":        "string",
						"description": "Exact accessibility role tag, e.g. AXButton",
					},
					"element_types": map[string]interface{}{
						"type":        "array",
						"description": "Element type categories: button, textfield, checkbox, radio, slider, link, menu, menuitem, table, list, image, statictext, window, any",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Exact title match",
					},
					"title_contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive title substring match",
					},
					"value": map[string]interface{}{
						"type":        "string",
						"description": "Exact value match",
					},
					"value_contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive value substring match",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Exact description match",
					},
					"description_contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive description substring match",
					},
					"text_contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive substring match over title, value, and description",
					},
					"any_field_contains": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive substring match over role, title, description, value, and identifier",
					},
					"interactable": map[string]interface{}{
						"type":        "boolean",
						"description": "Restrict to elements that are (or are not) interactable",
					},
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "Restrict by the enabled state",
					},
					"include_hidden": map[string]interface{}{
						"type":        "boolean",
						"description": "Include elements that are not visible",
					},
					"in_menus": map[string]interface{}{
						"type":        "boolean",
						"description": "Restrict to elements inside menus",
					},
					"in_main_content": map[string]interface{}{
						"type":        "boolean",
						"description": "Restrict to elements outside menus",
					},
					"max_depth": map[string]interface{}{
						"type":        "integer",
						"description": "Traversal depth bound relative to the scope root",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of results",
					},
				},
			},
			Handler: s.handleFindElements,
		},
		"ping_bridge": {
			Name:        "ping_bridge",
			Description: "Check accessibility bridge connectivity and report its version",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Handler: s.handlePingBridge,
		},
	}
}

// requestContext derives the per-call context with the configured timeout.
func (s *MCPServer) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.RequestTimeout)
}

// Serve starts serving MCP requests
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	s.logger.Info("MCP server starting")

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("MCP server stopping (context cancelled)")
			return nil
		default:
			// Read a message
			msg, err := tr.ReadMessage()
			if err != nil {
				if strings.Contains(err.Error(), "stdin closed") || strings.Contains(err.Error(), "transport is closed") {
					s.logger.Info("MCP server stopping (stdin closed)")
					return nil
				}
				s.logger.Error("error reading message", slog.Any("error", err))
				continue
			}

			// Handle the message
			go s.handleMessage(tr, msg)
		}
	}
}

// handleMessage handles a single MCP message
func (s *MCPServer) handleMessage(tr *transport.StdioTransport, msg *transport.Message) {
	// Handle initialize request
	if msg.Method == "initialize" {
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Result:  []byte(`{"protocolVersion":"2024-11-05","capabilities":{},"serverInfo":{"name":"uipath-mcp","version":"0.1.0"}}`),
		}
		if err := tr.WriteMessage(response); err != nil {
			s.logger.Error("error writing response", slog.Any("error", err))
		}
		return
	}

	// Handle list_tools request
	if msg.Method == "tools/list" {
		s.mu.RLock()
		tools := make([]map[string]interface{}, 0, len(s.tools))
		for _, tool := range s.tools {
			tools = append(tools, map[string]interface{}{
				"name":        tool.Name,
				"description": tool.Description,
				"inputSchema": tool.InputSchema,
			})
		}
		s.mu.RUnlock()

		result, _ := json.Marshal(map[string]interface{}{"tools": tools})
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Result:  result,
		}
		if err := tr.WriteMessage(response); err != nil {
			s.logger.Error("error writing response", slog.Any("error", err))
		}
		return
	}

	// Handle tool call request
	if msg.Method == "tools/call" {
		s.handleToolCall(tr, msg)
		return
	}

	// Handle unknown method
	response := &transport.Message{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Error: &transport.ErrorObj{
			Code:    transport.ErrCodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", msg.Method),
		},
	}
	tr.WriteMessage(response)
}

func (s *MCPServer) handleToolCall(tr *transport.StdioTransport, msg *transport.Message) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInvalidRequest,
				Message: fmt.Sprintf("Invalid request: %v", err),
			},
		}
		tr.WriteMessage(response)
		return
	}

	s.mu.RLock()
	tool, exists := s.tools[params.Name]
	s.mu.RUnlock()

	if !exists {
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Tool not found: %s", params.Name),
			},
		}
		tr.WriteMessage(response)
		return
	}

	if !s.limiter.Allow() {
		s.metrics.RecordRequest(params.Name, "rate_limited", 0)
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    -32000,
				Message: "Rate limit exceeded, try again later",
			},
		}
		tr.WriteMessage(response)
		return
	}

	// Validate against the tool's input schema before dispatch
	args := map[string]any{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			response := invalidParamsError(fmt.Sprintf("arguments must be an object: %v", err))
			response.ID = msg.ID
			tr.WriteMessage(response)
			return
		}
	}
	s.mu.RLock()
	errResponse := validateToolInput(params.Name, args, s.tools)
	s.mu.RUnlock()
	if errResponse != nil {
		errResponse.ID = msg.ID
		tr.WriteMessage(errResponse)
		return
	}

	// Call the tool handler
	start := time.Now()
	result, err := tool.Handler(&ToolCall{
		Name:      params.Name,
		Arguments: params.Arguments,
	})
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.IsError:
		status = "tool_error"
	}
	s.metrics.RecordRequest(params.Name, status, elapsed)
	s.audit.LogToolCall(params.Name, params.Arguments, status, elapsed)

	if err != nil {
		response := &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInternalError,
				Message: err.Error(),
			},
		}
		tr.WriteMessage(response)
		return
	}

	// Format the result as content array
	resultMap := map[string]interface{}{
		"content": result.Content,
	}
	if result.IsError {
		resultMap["isError"] = true
	}

	resultBytes, _ := json.Marshal(resultMap)
	response := &transport.Message{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Result:  resultBytes,
	}
	if err := tr.WriteMessage(response); err != nil {
		s.logger.Error("error writing response", slog.Any("error", err))
	}
}
