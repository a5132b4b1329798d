package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/opkit/pkg/ops"
	"github.com/rendis/opkit/pkg/ops/trigger"
)

// handleTick evaluates every primary trigger once.
func (s *Server) handleTick(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Tick(ctx, s.data, s.refs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("tick failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"ok":       true,
		"triggers": s.engine.Primary().Names(),
	})
}

// handleFire spawns a named trigger and fires it against the shared pair.
func (s *Server) handleFire(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError("trigger is required"), nil
	}
	params := mcp.ParseStringMap(req, "params", nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, spawnErr := s.engine.Spawn(name)
	if spawnErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("spawn failed: %v", spawnErr)), nil
	}
	for k, v := range params {
		s.data.Insert(k, v)
	}
	if fireErr := trigger.Fire(ctx, t, s.data, s.refs); fireErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fire failed: %v", fireErr)), nil
	}
	return marshalResult(map[string]any{"ok": true, "trigger": name})
}

// handleFuse enqueues a deferred invocation in the durable queue.
func (s *Server) handleFuse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.queue == nil {
		return mcp.NewToolResultError("no fuse queue configured"), nil
	}
	name, err := req.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError("trigger is required"), nil
	}
	params := mcp.ParseStringMap(req, "params", nil)

	fuse := ops.NewTriggerFuse(name)
	for k, v := range params {
		fuse.WithParam(k, v)
	}
	if storeErr := trigger.StoreFuse(ctx, s.queue, fuse); storeErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("enqueue failed: %v", storeErr)), nil
	}
	return marshalResult(map[string]any{"ok": true, "fuse_id": fuse.ID, "trigger": name})
}

// handleContextGet reads the shared data context.
func (s *Server) handleContextGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("key", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		v, ok := s.data.Get(key)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("key %q not found", key)), nil
		}
		return marshalResult(map[string]any{"key": key, "value": v})
	}

	reason, _ := s.data.AbortReason()
	return marshalResult(map[string]any{
		"values":       s.data.Values(),
		"aborted":      s.data.Aborted(),
		"abort_reason": reason,
	})
}

// handleContextSet inserts values into the shared data context.
func (s *Server) handleContextSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	values := mcp.ParseStringMap(req, "values", nil)
	if values == nil {
		return mcp.NewToolResultError("values is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.data.Insert(k, v)
	}
	return marshalResult(map[string]any{"ok": true, "inserted": len(values)})
}

// handleTriggers lists registered trigger names.
func (s *Server) handleTriggers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalResult(map[string]any{
		"primary":   s.engine.Primary().Names(),
		"secondary": s.engine.Secondary().Names(),
	})
}

// marshalResult encodes v as indented JSON in a text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
