// Copyright 2025 Joseph Cumines

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/joeycumines/uipath-mcp/internal/axclient"
	"github.com/joeycumines/uipath-mcp/internal/opaqueid"
	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

func callTool(t *testing.T, s *MCPServer, name string, args map[string]any) *ToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	tool, ok := s.tools[name]
	if !ok {
		t.Fatalf("tool %q not registered", name)
	}
	result, err := tool.Handler(&ToolCall{Name: name, Arguments: raw})
	if err != nil {
		t.Fatalf("%s handler error: %v", name, err)
	}
	return result
}

func resultJSON(t *testing.T, result *ToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool error: %s", result.Content[0].Text)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("unmarshal result text %q: %v", result.Content[0].Text, err)
	}
	return out
}

func errorText(t *testing.T, result *ToolResult) string {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected tool error, got: %s", result.Content[0].Text)
	}
	return result.Content[0].Text
}

func TestResolveElementByPath(t *testing.T) {
	s, _ := newTestServer(t, nil)

	result := callTool(t, s, "resolve_element", map[string]any{
		"element": `ui://AXApplication/AXWindow[@title="Untitled"]/AXButton[@title="Save"]`,
	})
	got := resultJSON(t, result)

	if got["role"] != "AXButton" || got["title"] != "Save" {
		t.Errorf("resolved role=%v title=%v, want AXButton Save", got["role"], got["title"])
	}
	if got["interactable"] != true {
		t.Error("expected Save button to be interactable")
	}
	path, _ := got["path"].(string)
	if !strings.HasPrefix(path, "ui://") {
		t.Errorf("path = %q, want ui:// prefix", path)
	}
	id, _ := got["element_id"].(string)
	if !opaqueid.IsToken(id) {
		t.Errorf("element_id = %q, want opaque token", id)
	}
	decoded, err := opaqueid.Decode(id)
	if err != nil || decoded != path {
		t.Errorf("element_id decodes to %q (err %v), want %q", decoded, err, path)
	}
}

func TestResolveElementByOpaqueID(t *testing.T) {
	s, _ := newTestServer(t, nil)

	token := opaqueid.Encode(`ui://AXApplication/AXWindow/AXButton[@title="Save"]`)
	result := callTool(t, s, "resolve_element", map[string]any{"element": token})
	got := resultJSON(t, result)

	if got["title"] != "Save" {
		t.Errorf("resolved title = %v, want Save", got["title"])
	}
}

func TestResolveElementApplicationScope(t *testing.T) {
	s, _ := newTestServer(t, nil)

	result := callTool(t, s, "resolve_element", map[string]any{
		"element":   `ui://AXApplication/AXWindow/AXTextArea`,
		"scope":     "application",
		"bundle_id": "com.apple.TextEdit",
	})
	got := resultJSON(t, result)

	if got["role"] != "AXTextArea" {
		t.Errorf("resolved role = %v, want AXTextArea", got["role"])
	}
	if got["value"] != "Hello, world" {
		t.Errorf("resolved value = %v", got["value"])
	}
}

func TestResolveElementErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name     string
		args     map[string]any
		contains string
	}{
		{
			name:     "not a path",
			args:     map[string]any{"element": "just some text"},
			contains: "ui://",
		},
		{
			// A token that fails to decode is treated as a raw path,
			// which then fails the path check.
			name:     "malformed token",
			args:     map[string]any{"element": "uie1_%%%"},
			contains: "ui://",
		},
		{
			name:     "element not found",
			args:     map[string]any{"element": `ui://AXApplication/AXWindow/AXButton[@title="Nope"]`},
			contains: "not found",
		},
		{
			name:     "ambiguous match",
			args:     map[string]any{"element": `ui://AXApplication/AXWindow/AXButton`},
			contains: "ambiguous",
		},
		{
			name:     "application scope without bundle",
			args:     map[string]any{"element": `ui://AXApplication/AXWindow`, "scope": "application"},
			contains: "bundle_id is required",
		},
		{
			name:     "unknown scope",
			args:     map[string]any{"element": `ui://AXApplication/AXWindow`, "scope": "galaxy"},
			contains: "unknown scope",
		},
		{
			name:     "unknown application",
			args:     map[string]any{"element": `ui://AXApplication/AXWindow`, "scope": "application", "bundle_id": "com.example.ghost"},
			contains: "com.example.ghost",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, "resolve_element", tt.args)
			text := errorText(t, result)
			if !strings.Contains(strings.ToLower(text), strings.ToLower(tt.contains)) {
				t.Errorf("error %q missing %q", text, tt.contains)
			}
		})
	}
}

func TestDescribeElement(t *testing.T) {
	s, _ := newTestServer(t, nil)

	result := callTool(t, s, "describe_element", map[string]any{
		"element": `ui://AXApplication/AXWindow/AXTextArea`,
	})
	got := resultJSON(t, result)

	if got["role"] != "AXTextArea" {
		t.Errorf("role = %v", got["role"])
	}
	if got["identifier"] != "document-body" {
		t.Errorf("identifier = %v", got["identifier"])
	}
	if got["focused"] != true {
		t.Error("expected focused flag")
	}
	if got["child_count"] != float64(0) {
		t.Errorf("child_count = %v, want 0", got["child_count"])
	}
	attrs, _ := got["attributes"].(map[string]any)
	if attrs["lineCount"] != float64(1) {
		t.Errorf("attributes.lineCount = %v, want 1", attrs["lineCount"])
	}
}

func TestDescribeElementChildRoles(t *testing.T) {
	s, _ := newTestServer(t, nil)

	result := callTool(t, s, "describe_element", map[string]any{
		"element": `ui://AXApplication/AXWindow[@title="Untitled"]`,
	})
	got := resultJSON(t, result)

	if got["child_count"] != float64(3) {
		t.Errorf("child_count = %v, want 3", got["child_count"])
	}
	roles, _ := got["child_roles"].([]any)
	if len(roles) != 3 || roles[0] != "AXTextArea" || roles[1] != "AXButton" {
		t.Errorf("child_roles = %v", roles)
	}
}

func findResults(t *testing.T, s *MCPServer, args map[string]any) []map[string]any {
	t.Helper()
	got := resultJSON(t, callTool(t, s, "find_elements", args))
	raw, _ := got["elements"].([]any)
	count, _ := got["count"].(float64)
	if int(count) != len(raw) {
		t.Errorf("count = %v but %d elements returned", count, len(raw))
	}
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.(map[string]any))
	}
	return out
}

func TestFindElementsByRole(t *testing.T) {
	s, _ := newTestServer(t, nil)

	results := findResults(t, s, map[string]any{"role": "AXButton"})
	if len(results) != 2 {
		t.Fatalf("got %d buttons, want 2", len(results))
	}
	if results[0]["title"] != "Save" || results[1]["title"] != "Close" {
		t.Errorf("unexpected order: %v, %v", results[0]["title"], results[1]["title"])
	}
}

func TestFindElementsByType(t *testing.T) {
	s, _ := newTestServer(t, nil)

	results := findResults(t, s, map[string]any{"element_types": []string{"button"}})
	if len(results) != 2 {
		t.Errorf("got %d results for type button, want 2", len(results))
	}

	result := callTool(t, s, "find_elements", map[string]any{"element_types": []string{"wizard"}})
	if !strings.Contains(errorText(t, result), "wizard") {
		t.Error("expected error naming the unknown type")
	}
}

func TestFindElementsInteractable(t *testing.T) {
	s, _ := newTestServer(t, nil)

	// Save, Close, the text area, the File menu bar item and the Open
	// menu item.
	results := findResults(t, s, map[string]any{"interactable": true})
	if len(results) != 5 {
		t.Fatalf("got %d interactable elements, want 5", len(results))
	}
	for _, r := range results {
		if r["interactable"] != true {
			t.Errorf("non-interactable element in results: %v", r["role"])
		}
	}
}

func TestFindElementsEnabledFilter(t *testing.T) {
	s, _ := newTestServer(t, nil)

	results := findResults(t, s, map[string]any{"enabled": false})
	if len(results) != 1 || results[0]["title"] != "Close" {
		t.Fatalf("enabled=false results = %v", results)
	}
}

func TestFindElementsMenuPartition(t *testing.T) {
	s, _ := newTestServer(t, nil)

	inMenus := findResults(t, s, map[string]any{"in_menus": true})
	if len(inMenus) != 4 {
		t.Errorf("in_menus gave %d elements, want 4", len(inMenus))
	}

	mainContent := findResults(t, s, map[string]any{"in_main_content": true})
	all := findResults(t, s, map[string]any{})
	if len(inMenus)+len(mainContent) != len(all) {
		t.Errorf("menu partition %d + %d != total %d", len(inMenus), len(mainContent), len(all))
	}
}

func TestFindElementsLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)

	results := findResults(t, s, map[string]any{"limit": 1})
	if len(results) != 1 {
		t.Errorf("got %d results with limit 1", len(results))
	}
}

func TestFindElementsResultsCarryPaths(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, r := range findResults(t, s, map[string]any{"interactable": true}) {
		path, _ := r["path"].(string)
		id, _ := r["element_id"].(string)
		if !strings.HasPrefix(path, "ui://") {
			t.Errorf("element %v missing path", r["role"])
			continue
		}
		decoded, err := opaqueid.Decode(id)
		if err != nil || decoded != path {
			t.Errorf("element_id for %v does not decode to its path", r["role"])
		}
	}
}

func TestFindElementsSystemScope(t *testing.T) {
	s, _ := newTestServer(t, nil)

	results := findResults(t, s, map[string]any{"scope": "system", "role": "AXButton"})
	if len(results) != 2 {
		t.Fatalf("got %d buttons under system scope, want 2", len(results))
	}
	// Paths generated under the system scope still start at the
	// application element.
	for _, r := range results {
		path, _ := r["path"].(string)
		if !strings.HasPrefix(path, "ui://AXApplication") {
			t.Errorf("system-scope path = %q", path)
		}
	}
}

func TestFindElementsTextPredicates(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"exact title", map[string]any{"title": "Save"}, 1},
		{"exact title case sensitive", map[string]any{"title": "save"}, 0},
		{"title contains folds case", map[string]any{"title_contains": "SAV"}, 1},
		{"value contains", map[string]any{"value_contains": "hello"}, 1},
		{"text contains", map[string]any{"text_contains": "hello"}, 1},
		{"text contains excludes identifier", map[string]any{"text_contains": "document-body"}, 0},
		{"any field contains identifier", map[string]any{"any_field_contains": "document-body"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(findResults(t, s, tt.args)); got != tt.want {
				t.Errorf("got %d results, want %d", got, tt.want)
			}
		})
	}
}

func TestPingBridgeWithoutBridge(t *testing.T) {
	s, _ := newTestServer(t, nil)

	result := callTool(t, s, "ping_bridge", map[string]any{})
	if !strings.Contains(errorText(t, result), "no bridge connection") {
		t.Error("expected no-bridge error")
	}
}

func TestSummarizeUnanchoredSnapshot(t *testing.T) {
	fake := axclient.NewFakeAccessor()
	fake.AddApp("com.apple.TextEdit", editorApp())

	var logs bytes.Buffer
	s, err := NewMCPServerWithAccessor(testConfig(), fake, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewMCPServerWithAccessor: %v", err)
	}
	t.Cleanup(s.Shutdown)

	root, err := fake.FetchRoot(context.Background(), axclient.FocusedScope(), 15)
	if err != nil {
		t.Fatalf("FetchRoot: %v", err)
	}
	byRole := func(snap *uitree.Snapshot, role string) uitree.NodeID {
		found := uitree.InvalidNode
		snap.Walk(snap.Root(), func(id uitree.NodeID, depth int) bool {
			if snap.Node(id).Role == role {
				found = id
				return false
			}
			return true
		})
		if found == uitree.InvalidNode {
			t.Fatalf("no %s in snapshot", role)
		}
		return found
	}

	// A children fetch is rooted mid-tree, so no path can be generated
	// for its nodes; the summary falls back to the raw identifier.
	sub, err := fake.FetchChildren(context.Background(), root, byRole(root, "AXWindow"), 15)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}

	got := s.summarize(sub, byRole(sub, "AXTextArea"))
	if got.Path != "" || got.ElementID != "" {
		t.Errorf("path = %q, element_id = %q, want both empty", got.Path, got.ElementID)
	}
	if got.Identifier != "document-body" {
		t.Errorf("identifier = %q, want document-body", got.Identifier)
	}
	if !strings.Contains(logs.String(), "falling back to identifier") {
		t.Errorf("log output missing fallback warning: %q", logs.String())
	}
}
