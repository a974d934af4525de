// Copyright 2025 Joseph Cumines
//
// Element resolution, description and search tool handlers

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeycumines/uipath-mcp/internal/axclient"
	"github.com/joeycumines/uipath-mcp/internal/elementpath"
	"github.com/joeycumines/uipath-mcp/internal/filter"
	"github.com/joeycumines/uipath-mcp/internal/opaqueid"
	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// elementSummary is the JSON shape returned for a single element.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type elementSummary struct {
	Path         string   `json:"path,omitempty"`
	ElementID    string   `json:"element_id,omitempty"`
	Role         string   `json:"role"`
	Title        string   `json:"title,omitempty"`
	Value        string   `json:"value,omitempty"`
	Description  string   `json:"description,omitempty"`
	Identifier   string   `json:"identifier,omitempty"`
	Frame        string   `json:"frame"`
	Visible      bool     `json:"visible"`
	Enabled      bool     `json:"enabled"`
	Focused      bool     `json:"focused,omitempty"`
	Selected     bool     `json:"selected,omitempty"`
	Interactable bool     `json:"interactable"`
	Truncated    bool     `json:"truncated,omitempty"`
	Actions      []string `json:"actions,omitempty"`
}

// scopeArgs are the addressing arguments shared by every element tool.
type scopeArgs struct {
	Scope    string `json:"scope"`
	BundleID string `json:"bundle_id"`
}

func (a scopeArgs) toScope() (axclient.Scope, error) {
	switch a.Scope {
	case "", "focused":
		return axclient.FocusedScope(), nil
	case "system":
		return axclient.SystemScope(), nil
	case "application":
		if a.BundleID == "" {
			return axclient.Scope{}, fmt.Errorf("bundle_id is required when scope is 'application'")
		}
		return axclient.ApplicationScope(a.BundleID), nil
	default:
		return axclient.Scope{}, fmt.Errorf("unknown scope %q (expected focused, application or system)", a.Scope)
	}
}

// parseElementRef turns the element argument into a Path. Opaque element
// IDs are decoded first; a decode failure is logged and the input falls
// back to raw-path interpretation.
func (s *MCPServer) parseElementRef(element string) (elementpath.Path, error) {
	text := element
	if opaqueid.IsToken(element) {
		decoded, err := opaqueid.Decode(element)
		if err != nil {
			s.logger.Warn("element ID decode failed, treating input as a raw path",
				slog.Any("error", err))
		} else {
			text = decoded
		}
	}
	if !elementpath.IsPath(text) {
		return elementpath.Path{}, fmt.Errorf("element must be a ui:// path or an opaque element ID, got %q", truncateText(element))
	}
	return elementpath.Parse(text)
}

// summarize builds the JSON summary for one node, generating its
// canonical path and opaque ID. Path generation can fail on unanchored
// snapshots; the summary then carries only the raw identifier.
func (s *MCPServer) summarize(snap *uitree.Snapshot, id uitree.NodeID) elementSummary {
	n := snap.Node(id)
	out := elementSummary{
		Role:         n.Role,
		Title:        n.Title,
		Value:        n.Value,
		Description:  n.Description,
		Identifier:   n.Identifier,
		Frame:        n.Frame.String(),
		Visible:      n.Visible,
		Enabled:      n.Enabled,
		Focused:      n.Focused,
		Selected:     n.Selected,
		Interactable: n.Interactable(),
		Truncated:    n.Truncated,
		Actions:      n.Actions,
	}

	path, err := s.generator.GenerateString(snap, id)
	if err != nil {
		var broken *elementpath.BrokenAncestryError
		if errors.As(err, &broken) {
			s.logger.Warn("path generation failed, falling back to identifier",
				slog.String("role", n.Role), slog.Any("error", err))
			return out
		}
		s.logger.Warn("path generation failed", slog.Any("error", err))
		return out
	}
	out.Path = path
	out.ElementID = opaqueid.Encode(path)
	return out
}

func jsonResult(v any) *ToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResultf("failed to encode result: %v", err)
	}
	return textResult(string(data))
}

// resolveErrorResult maps resolver failures to tool errors with the
// failing segment called out.
func resolveErrorResult(err error, toolName string) *ToolResult {
	var notFound *elementpath.NotFoundError
	var ambiguous *elementpath.AmbiguousError
	var outOfRange *elementpath.IndexOutOfRangeError
	switch {
	case errors.As(err, &notFound):
		return errorResultf("Element not found: %v", err)
	case errors.As(err, &ambiguous):
		return errorResultf("Path is ambiguous: %v\nAdd predicates or a [n] index to the failing segment", err)
	case errors.As(err, &outOfRange):
		return errorResultf("Index out of range: %v", err)
	}
	return grpcErrorResult(err, toolName)
}

func (s *MCPServer) handleResolveElement(call *ToolCall) (*ToolResult, error) {
	var args struct {
		scopeArgs
		Element string `json:"element"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return errorResultf("Invalid arguments: %v", err), nil
	}

	path, err := s.parseElementRef(args.Element)
	if err != nil {
		return errorResultf("%v", err), nil
	}
	scope, err := args.toScope()
	if err != nil {
		return errorResultf("%v", err), nil
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	snap, id, err := s.resolver.Resolve(ctx, path, scope)
	if err != nil {
		return resolveErrorResult(err, call.Name), nil
	}

	return jsonResult(s.summarize(snap, id)), nil
}

func (s *MCPServer) handleDescribeElement(call *ToolCall) (*ToolResult, error) {
	var args struct {
		scopeArgs
		Element string `json:"element"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return errorResultf("Invalid arguments: %v", err), nil
	}

	path, err := s.parseElementRef(args.Element)
	if err != nil {
		return errorResultf("%v", err), nil
	}
	scope, err := args.toScope()
	if err != nil {
		return errorResultf("%v", err), nil
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	snap, id, err := s.resolver.Resolve(ctx, path, scope)
	if err != nil {
		return resolveErrorResult(err, call.Name), nil
	}

	n := snap.Node(id)
	children := snap.Children(id)
	childRoles := make([]string, 0, len(children))
	for _, c := range children {
		childRoles = append(childRoles, snap.Node(c).Role)
	}

	detail := struct {
		elementSummary
		Attributes map[string]any `json:"attributes,omitempty"`
		ChildRoles []string       `json:"child_roles,omitempty"`
		ChildCount int            `json:"child_count"`
	}{
		elementSummary: s.summarize(snap, id),
		Attributes:     attrsToJSON(n.Attrs),
		ChildRoles:     childRoles,
		ChildCount:     len(children),
	}
	return jsonResult(detail), nil
}

func (s *MCPServer) handleFindElements(call *ToolCall) (*ToolResult, error) {
	var args struct {
		scopeArgs
		Role                string   `json:"role"`
		ElementTypes        []string `json:"element_types"`
		Title               string   `json:"title"`
		TitleContains       string   `json:"title_contains"`
		Value               string   `json:"value"`
		ValueContains       string   `json:"value_contains"`
		Description         string   `json:"description"`
		DescriptionContains string   `json:"description_contains"`
		TextContains        string   `json:"text_contains"`
		AnyFieldContains    string   `json:"any_field_contains"`
		Interactable        *bool    `json:"interactable"`
		Enabled             *bool    `json:"enabled"`
		IncludeHidden       bool     `json:"include_hidden"`
		InMenus             bool     `json:"in_menus"`
		InMainContent       bool     `json:"in_main_content"`
		MaxDepth            int      `json:"max_depth"`
		Limit               int      `json:"limit"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return errorResultf("Invalid arguments: %v", err), nil
		}
	}

	scope, err := args.toScope()
	if err != nil {
		return errorResultf("%v", err), nil
	}

	types := make([]uitree.ElementType, 0, len(args.ElementTypes))
	for _, t := range args.ElementTypes {
		et := uitree.ElementType(t)
		if !uitree.KnownType(et) {
			return errorResultf("unknown element type %q", t), nil
		}
		types = append(types, et)
	}

	limit := args.Limit
	if limit <= 0 || limit > s.cfg.MaxFindResults {
		limit = s.cfg.MaxFindResults
	}

	criteria := filter.Criteria{
		Role:                args.Role,
		ElementTypes:        types,
		Title:               args.Title,
		TitleContains:       args.TitleContains,
		Value:               args.Value,
		ValueContains:       args.ValueContains,
		Description:         args.Description,
		DescriptionContains: args.DescriptionContains,
		TextContains:        args.TextContains,
		AnyFieldContains:    args.AnyFieldContains,
		Interactable:        args.Interactable,
		Enabled:             args.Enabled,
		IncludeHidden:       args.IncludeHidden,
		InMenus:             args.InMenus,
		InMainContent:       args.InMainContent,
		MaxDepth:            args.MaxDepth,
		Limit:               limit,
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	snap, err := s.ax.FetchRoot(ctx, scope, s.cfg.DefaultFetchDepth)
	if err != nil {
		return grpcErrorResult(err, call.Name), nil
	}

	ids := filter.Find(snap, snap.Root(), criteria)
	results := make([]elementSummary, 0, len(ids))
	for _, id := range ids {
		results = append(results, s.summarize(snap, id))
	}

	return jsonResult(struct {
		Count    int              `json:"count"`
		Elements []elementSummary `json:"elements"`
	}{Count: len(results), Elements: results}), nil
}

func (s *MCPServer) handlePingBridge(_ *ToolCall) (*ToolResult, error) {
	if s.bridge == nil {
		return errorResult("no bridge connection (server running against a local accessor)"), nil
	}

	ctx, cancel := s.requestContext()
	defer cancel()

	version, err := s.bridge.Ping(ctx)
	s.metrics.SetBridgeUp(err == nil)
	if err != nil {
		return grpcErrorResult(err, "ping_bridge"), nil
	}
	return textResultf("Bridge reachable, version %s", version), nil
}

// attrsToJSON flattens the tagged attribute values for JSON output.
func attrsToJSON(attrs map[string]uitree.AttrValue) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = attrToAny(v)
	}
	return out
}

func attrToAny(v uitree.AttrValue) any {
	switch v.Kind() {
	case uitree.AttrString:
		return v.Str()
	case uitree.AttrBool:
		return v.Bool()
	case uitree.AttrNumber:
		return v.Number()
	case uitree.AttrMap:
		m := make(map[string]any, len(v.Map()))
		for k, mv := range v.Map() {
			m[k] = attrToAny(mv)
		}
		return m
	default:
		return v.Text()
	}
}
