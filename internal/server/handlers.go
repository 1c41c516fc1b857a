package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
	"airflow-mcp/pkg/logging"
)

// toolFunc is the shape every tool implementation takes: it receives the
// per-call operation for context fields and returns the success payload or a
// classified error.
type toolFunc func(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error)

// tool wraps a toolFunc into an MCP handler. Failures, including panics,
// always surface as a single JSON error envelope carrying the request_id.
func (s *Server) tool(name string, fn toolFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, retErr error) {
		op := ops.Begin(name)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in %s: %v", name, r)
				logging.Error("Server", err, "tool handler panicked")
				result = mcp.NewToolResultError(op.Fail(err))
				retErr = nil
			}
		}()

		payload, err := fn(ctx, op, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(op.Fail(err)), nil
		}
		text, err := op.Success(payload)
		if err != nil {
			return mcp.NewToolResultError(op.Fail(err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// resolveTarget picks the deployment (and any URL-borne identifiers) from
// the standard instance / ui_url argument pair.
func (s *Server) resolveTarget(op *ops.Operation, args map[string]interface{}) (target.Resolved, error) {
	resolved, err := target.Resolve(s.factory.Registry(), strArg(args, "instance"), strArg(args, "ui_url"))
	if err != nil {
		return target.Resolved{}, err
	}
	op.Set("instance", resolved.Instance)
	return resolved, nil
}
