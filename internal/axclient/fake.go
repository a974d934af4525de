// Copyright 2025 Joseph Cumines
//
// In-memory accessor for tests

package axclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// FakeAccessor is a deterministic in-memory Accessor backed by seeded
// BridgeNode trees. It applies the same depth bounding and truncation
// marking as the real bridge, which makes it suitable for exercising the
// resolver's re-fetch escalation. Seed trees before first use; after that
// the fake is safe for concurrent reads.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type FakeAccessor struct {
	// FailWith, when set, is returned from every fetch. Used to exercise
	// error paths.
	FailWith error

	apps    []*BridgeNode
	focused string
	byRef   map[string]*BridgeNode
	refSeq  int

	mu         sync.Mutex
	fetchCalls int
}

// NewFakeAccessor returns an empty fake. Add applications with AddApp.
func NewFakeAccessor() *FakeAccessor {
	return &FakeAccessor{byRef: make(map[string]*BridgeNode)}
}

// AddApp seeds one application tree. root's role should be
// "AXApplication"; the bundle identifier is recorded as a root attribute.
// Every node is assigned a stable ref, as the bridge would.
func (f *FakeAccessor) AddApp(bundleID string, root *BridgeNode) {
	if root.Attributes == nil {
		root.Attributes = map[string]any{}
	}
	if _, ok := root.Attributes["bundleID"]; !ok {
		root.Attributes["bundleID"] = bundleID
	}
	f.assignRefs(root)
	f.apps = append(f.apps, root)
	if f.focused == "" {
		f.focused = bundleID
	}
}

// SetFocused marks which seeded application the focused scope resolves to.
func (f *FakeAccessor) SetFocused(bundleID string) { f.focused = bundleID }

// FetchCalls returns how many fetches (root or children) have been served.
func (f *FakeAccessor) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *FakeAccessor) assignRefs(n *BridgeNode) {
	if n.Ref == "" {
		f.refSeq++
		n.Ref = fmt.Sprintf("ref-%d", f.refSeq)
	}
	f.byRef[n.Ref] = n
	for _, c := range n.Children {
		f.assignRefs(c)
	}
}

func (f *FakeAccessor) countFetch() {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
}

// FetchRoot implements Accessor. ScopeElement is not supported by the
// fake; the real bridge resolves element scopes on its side.
func (f *FakeAccessor) FetchRoot(ctx context.Context, scope Scope, maxDepth int) (*uitree.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.countFetch()

	switch scope.Kind {
	case ScopeSystem:
		root := &BridgeNode{Role: "AXSystemWide", Visible: true, Enabled: true}
		for _, app := range f.apps {
			root.Children = append(root.Children, app)
		}
		return SnapshotFromBridge(boundedClone(root, maxDepth), true), nil
	case ScopeApplication, ScopeFocused:
		bundle := scope.BundleID
		if scope.Kind == ScopeFocused {
			bundle = f.focused
		}
		for _, app := range f.apps {
			if app.Attributes["bundleID"] == bundle {
				return SnapshotFromBridge(boundedClone(app, maxDepth), true), nil
			}
		}
		return nil, fmt.Errorf("no application %q", bundle)
	default:
		return nil, fmt.Errorf("fake accessor does not support scope %s", scope)
	}
}

// FetchChildren implements Accessor.
func (f *FakeAccessor) FetchChildren(ctx context.Context, snap *uitree.Snapshot, id uitree.NodeID, maxDepth int) (*uitree.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FailWith != nil {
		return nil, f.FailWith
	}

	node := snap.Node(id)
	if node == nil {
		return nil, fmt.Errorf("unknown node %d", id)
	}
	seed, ok := f.byRef[node.Ref]
	if !ok {
		return nil, fmt.Errorf("unknown ref %q", node.Ref)
	}
	f.countFetch()
	return SnapshotFromBridge(boundedClone(seed, maxDepth), false), nil
}

// boundedClone copies n down to depth levels, marking nodes whose children
// were cut as truncated. The seed tree is never aliased into a snapshot.
func boundedClone(n *BridgeNode, depth int) *BridgeNode {
	c := *n
	c.Children = nil
	if depth <= 0 {
		c.Truncated = len(n.Children) > 0
		return &c
	}
	for _, ch := range n.Children {
		c.Children = append(c.Children, boundedClone(ch, depth-1))
	}
	return &c
}

var _ Accessor = (*FakeAccessor)(nil)
