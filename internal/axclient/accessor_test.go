// Copyright 2025 Joseph Cumines

package axclient

import (
	"context"
	"errors"
	"testing"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

func seedTree() *BridgeNode {
	return &BridgeNode{
		Role:    "AXApplication",
		Title:   "TextEdit",
		Visible: true,
		Enabled: true,
		Children: []*BridgeNode{
			{
				Role:    "AXWindow",
				Title:   "Untitled",
				Frame:   uitree.Frame{X: 10, Y: 20, Width: 800, Height: 600},
				Visible: true,
				Enabled: true,
				Children: []*BridgeNode{
					{
						Role: "AXTextArea", Value: "draft", Visible: true, Enabled: true, Focused: true,
						Actions:    []string{"AXConfirm"},
						Attributes: map[string]any{"lineCount": float64(3), "wrapped": true},
					},
				},
			},
		},
	}
}

func TestSnapshotFromBridge(t *testing.T) {
	snap := SnapshotFromBridge(seedTree(), true)

	if !snap.Anchored() {
		t.Error("snapshot not anchored")
	}
	if snap.Len() != 3 {
		t.Fatalf("Len = %d, want 3", snap.Len())
	}

	root := snap.Root()
	rn := snap.Node(root)
	if rn.Role != "AXApplication" || rn.Title != "TextEdit" {
		t.Errorf("root = %s %q", rn.Role, rn.Title)
	}

	wins := snap.Children(root)
	if len(wins) != 1 {
		t.Fatalf("root children = %d, want 1", len(wins))
	}
	wn := snap.Node(wins[0])
	if wn.Frame.Width != 800 || wn.Frame.Height != 600 {
		t.Errorf("window frame = %v", wn.Frame)
	}

	areas := snap.Children(wins[0])
	if len(areas) != 1 {
		t.Fatalf("window children = %d, want 1", len(areas))
	}
	an := snap.Node(areas[0])
	if !an.Focused || an.Value != "draft" {
		t.Errorf("text area = %+v", an)
	}
	if got := an.Attrs["lineCount"].Number(); got != 3 {
		t.Errorf("lineCount attr = %v, want 3", got)
	}
	if !an.Attrs["wrapped"].Bool() {
		t.Error("wrapped attr lost")
	}
	if snap.Parent(areas[0]) != wins[0] {
		t.Error("parent link broken")
	}
}

func TestSnapshotFromBridgeNil(t *testing.T) {
	snap := SnapshotFromBridge(nil, true)
	if snap.Len() != 0 || snap.Root() != uitree.InvalidNode {
		t.Errorf("nil root produced %d nodes", snap.Len())
	}
}

func TestFakeDepthBounding(t *testing.T) {
	fake := NewFakeAccessor()
	fake.AddApp("com.apple.TextEdit", seedTree())

	snap, err := fake.FetchRoot(context.Background(), ApplicationScope("com.apple.TextEdit"), 1)
	if err != nil {
		t.Fatalf("FetchRoot: %v", err)
	}
	// Depth 1 loads the application and its windows; the window's subtree
	// is cut and marked truncated.
	if snap.Len() != 2 {
		t.Fatalf("Len = %d, want 2", snap.Len())
	}
	win := snap.Children(snap.Root())[0]
	if !snap.Node(win).Truncated {
		t.Error("window with cut children not marked truncated")
	}

	deeper, err := fake.FetchChildren(context.Background(), snap, win, 5)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if deeper.Anchored() {
		t.Error("children fetch must produce an unanchored snapshot")
	}
	if got := deeper.Node(deeper.Root()).Role; got != "AXWindow" {
		t.Errorf("children fetch rooted at %q, want AXWindow", got)
	}
	if len(deeper.Children(deeper.Root())) != 1 {
		t.Error("children fetch did not load the cut subtree")
	}
}

func TestFakeSystemScope(t *testing.T) {
	fake := NewFakeAccessor()
	fake.AddApp("com.apple.TextEdit", seedTree())
	fake.AddApp("com.example.other", &BridgeNode{Role: "AXApplication", Title: "Other", Visible: true, Enabled: true})

	snap, err := fake.FetchRoot(context.Background(), SystemScope(), 5)
	if err != nil {
		t.Fatalf("FetchRoot: %v", err)
	}
	root := snap.Node(snap.Root())
	if root.Role != "AXSystemWide" {
		t.Errorf("system root role = %q", root.Role)
	}
	if got := len(snap.Children(snap.Root())); got != 2 {
		t.Errorf("running applications = %d, want 2", got)
	}
}

func TestFakeFocusedScope(t *testing.T) {
	fake := NewFakeAccessor()
	fake.AddApp("com.apple.TextEdit", seedTree())
	fake.AddApp("com.example.other", &BridgeNode{Role: "AXApplication", Title: "Other", Visible: true, Enabled: true})

	// The first seeded application is focused by default.
	snap, err := fake.FetchRoot(context.Background(), FocusedScope(), 5)
	if err != nil {
		t.Fatalf("FetchRoot: %v", err)
	}
	if got := snap.Node(snap.Root()).Title; got != "TextEdit" {
		t.Errorf("focused app = %q, want TextEdit", got)
	}

	fake.SetFocused("com.example.other")
	snap, err = fake.FetchRoot(context.Background(), FocusedScope(), 5)
	if err != nil {
		t.Fatalf("FetchRoot after SetFocused: %v", err)
	}
	if got := snap.Node(snap.Root()).Title; got != "Other" {
		t.Errorf("focused app = %q, want Other", got)
	}
}

func TestFakeUnknownApplication(t *testing.T) {
	fake := NewFakeAccessor()
	if _, err := fake.FetchRoot(context.Background(), ApplicationScope("com.missing"), 5); err == nil {
		t.Error("fetch of unknown application succeeded")
	}
}

func TestFakeFailWith(t *testing.T) {
	fake := NewFakeAccessor()
	fake.AddApp("a", &BridgeNode{Role: "AXApplication", Visible: true})
	fake.FailWith = errors.New("boom")

	if _, err := fake.FetchRoot(context.Background(), SystemScope(), 5); !errors.Is(err, fake.FailWith) {
		t.Errorf("FetchRoot error = %v", err)
	}
}

func TestScopeString(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{SystemScope(), "system"},
		{FocusedScope(), "focused"},
		{ApplicationScope("com.apple.TextEdit"), "application(com.apple.TextEdit)"},
		{ElementScope("ui://AXApplication/AXWindow"), "element(ui://AXApplication/AXWindow)"},
	}
	for _, tt := range tests {
		if got := tt.scope.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
