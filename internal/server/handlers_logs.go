package server

import (
	"context"

	"airflow-mcp/internal/logs"
	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
	"airflow-mcp/internal/toolerr"
)

func (s *Server) getTaskInstanceLogs(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}
	runID, err := requireDagRunID(args, resolved)
	if err != nil {
		return nil, err
	}
	taskID, err := requireTaskID(args, resolved)
	if err != nil {
		return nil, err
	}

	tryNumber := resolved.TryNumber
	if raw, ok := args["try_number"]; ok && raw != nil {
		n, ok := logs.CoerceInt(raw)
		if !ok {
			return nil, toolerr.New(toolerr.CodeInvalidInput, "try_number must be an integer").
				WithContext("field", "try_number").
				WithContext("value", raw)
		}
		tryNumber = n
	}
	if tryNumber <= 0 {
		return nil, toolerr.New(toolerr.CodeInvalidInput, "Missing try_number").
			WithContext("field", "try_number")
	}

	params, err := logs.NewParams(strArg(args, "filter_level"),
		args["context_lines"], args["tail_lines"], args["max_bytes"])
	if err != nil {
		return nil, err
	}

	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)
	op.Set("task_id", taskID)
	op.Set("try_number", tryNumber)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetTaskLogs(ctx, dagID, runID, taskID, tryNumber)
	if err != nil {
		return nil, err
	}

	result := logs.Process(raw, params)

	return map[string]interface{}{
		"log":            result.Log,
		"truncated":      result.Truncated,
		"auto_tailed":    result.AutoTailed,
		"bytes_returned": result.BytesReturned,
		"original_lines": result.OriginalLines,
		"returned_lines": result.ReturnedLines,
		"match_count":    result.MatchCount,
		"meta": map[string]interface{}{
			"try_number": tryNumber,
			"filters": map[string]interface{}{
				"filter_level":  nilIfEmpty(string(result.Params.Level)),
				"context_lines": result.Params.ContextLines,
				"tail_lines":    result.Params.TailLines,
				"max_bytes":     result.Params.MaxBytes,
			},
		},
		"ui_url": s.uiURL(resolved.Instance, target.RouteLog, dagID, target.BuildOpts{
			DagRunID:  runID,
			TaskID:    taskID,
			TryNumber: tryNumber,
		}),
	}, nil
}
