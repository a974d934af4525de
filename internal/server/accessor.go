// Copyright 2025 Joseph Cumines
//
// Accessor decorator that records fetch metrics

package server

import (
	"context"
	"time"

	"github.com/joeycumines/uipath-mcp/internal/axclient"
	"github.com/joeycumines/uipath-mcp/internal/transport"
	"github.com/joeycumines/uipath-mcp/internal/uitree"
)

// instrumentedAccessor wraps an Accessor and records per-fetch metrics.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type instrumentedAccessor struct {
	ax      axclient.Accessor
	metrics *transport.MetricsRegistry
}

var _ axclient.Accessor = (*instrumentedAccessor)(nil)

func newInstrumentedAccessor(ax axclient.Accessor, metrics *transport.MetricsRegistry) *instrumentedAccessor {
	return &instrumentedAccessor{ax: ax, metrics: metrics}
}

func (a *instrumentedAccessor) FetchRoot(ctx context.Context, scope axclient.Scope, maxDepth int) (*uitree.Snapshot, error) {
	start := time.Now()
	snap, err := a.ax.FetchRoot(ctx, scope, maxDepth)
	a.record("root", err, time.Since(start))
	return snap, err
}

func (a *instrumentedAccessor) FetchChildren(ctx context.Context, snap *uitree.Snapshot, id uitree.NodeID, maxDepth int) (*uitree.Snapshot, error) {
	start := time.Now()
	sub, err := a.ax.FetchChildren(ctx, snap, id, maxDepth)
	a.record("children", err, time.Since(start))
	return sub, err
}

func (a *instrumentedAccessor) record(kind string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordFetch(kind, status, elapsed)
}
