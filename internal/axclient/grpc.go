// Copyright 2025 Joseph Cumines
//
// gRPC client for the accessibility bridge daemon

package axclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joeycumines/uipath-mcp/internal/uitree"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// Full method names of the bridge service. The wire contract is internal
// to this tool and its bridge daemon, so messages travel as JSON through a
// registered codec instead of generated protobuf stubs.
const (
	methodFetchRoot     = "/uipath.v1.Accessibility/FetchRoot"
	methodFetchChildren = "/uipath.v1.Accessibility/FetchChildren"
	methodPing          = "/uipath.v1.Accessibility/Ping"
)

// codecName is the content-subtype the bridge negotiates.
const codecName = "ax-json"

// jsonCodec marshals bridge messages as JSON for gRPC transport.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type fetchRootRequest struct {
	Scope       string `json:"scope"`
	BundleID    string `json:"bundle_id,omitempty"`
	ElementPath string `json:"element_path,omitempty"`
	MaxDepth    int    `json:"max_depth"`
}

type fetchChildrenRequest struct {
	Ref      string `json:"ref"`
	MaxDepth int    `json:"max_depth"`
}

type fetchResponse struct {
	Root *BridgeNode `json:"root"`
}

type pingRequest struct{}

type pingResponse struct {
	Version string `json:"version,omitempty"`
}

// GRPCAccessor talks to the accessibility bridge daemon over gRPC. It is
// safe for concurrent use; the bridge serializes tree reads on its side.
type GRPCAccessor struct {
	conn *grpc.ClientConn
}

// DialBridge connects to the bridge daemon. With useTLS set, certFile may
// name a CA certificate to trust; otherwise the system pool is used. With
// useTLS unset the connection is plaintext, matching a bridge on
// localhost.
func DialBridge(addr string, useTLS bool, certFile string) (*GRPCAccessor, error) {
	var opts []grpc.DialOption

	if useTLS {
		creds := credentials.NewTLS(nil)
		if certFile != "" {
			var err error
			creds, err = credentials.NewClientTLSFromFile(certFile, "")
			if err != nil {
				return nil, fmt.Errorf("failed to load TLS cert: %w", err)
			}
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge client: %w", err)
	}
	return &GRPCAccessor{conn: conn}, nil
}

// Close tears down the bridge connection.
func (a *GRPCAccessor) Close() error {
	return a.conn.Close()
}

// Ping checks bridge liveness and returns its reported version.
func (a *GRPCAccessor) Ping(ctx context.Context) (string, error) {
	var resp pingResponse
	if err := a.conn.Invoke(ctx, methodPing, &pingRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// FetchRoot implements Accessor.
func (a *GRPCAccessor) FetchRoot(ctx context.Context, scope Scope, maxDepth int) (*uitree.Snapshot, error) {
	req := &fetchRootRequest{
		Scope:       scope.Kind.String(),
		BundleID:    scope.BundleID,
		ElementPath: scope.ElementPath,
		MaxDepth:    maxDepth,
	}
	var resp fetchResponse
	if err := a.conn.Invoke(ctx, methodFetchRoot, req, &resp); err != nil {
		return nil, err
	}
	if resp.Root == nil {
		return nil, fmt.Errorf("bridge returned no tree for scope %s", scope)
	}
	return SnapshotFromBridge(resp.Root, scope.Kind != ScopeElement), nil
}

// FetchChildren implements Accessor.
func (a *GRPCAccessor) FetchChildren(ctx context.Context, snap *uitree.Snapshot, id uitree.NodeID, maxDepth int) (*uitree.Snapshot, error) {
	node := snap.Node(id)
	if node == nil {
		return nil, fmt.Errorf("unknown node %d", id)
	}
	if node.Ref == "" {
		return nil, fmt.Errorf("node %d has no bridge ref; cannot re-fetch", id)
	}
	req := &fetchChildrenRequest{Ref: node.Ref, MaxDepth: maxDepth}
	var resp fetchResponse
	if err := a.conn.Invoke(ctx, methodFetchChildren, req, &resp); err != nil {
		return nil, err
	}
	if resp.Root == nil {
		return nil, fmt.Errorf("bridge returned no subtree for ref %s", node.Ref)
	}
	return SnapshotFromBridge(resp.Root, false), nil
}

var _ Accessor = (*GRPCAccessor)(nil)
