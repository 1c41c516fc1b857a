package server

import (
	"context"

	"airflow-mcp/internal/airflow"
	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
	"airflow-mcp/internal/toolerr"
)

var dagRunOrderFields = map[string]bool{
	"start_date":     true,
	"end_date":       true,
	"execution_date": true,
}

func (s *Server) listDagRuns(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}
	op.Set("dag_id", dagID)

	states, err := stringList(args, "state")
	if err != nil {
		return nil, err
	}

	orderBy := strArg(args, "order_by")
	descending := boolValue(args, "descending", true)
	if orderBy == "" {
		orderBy = "execution_date"
	} else if !dagRunOrderFields[orderBy] {
		return nil, toolerr.New(toolerr.CodeInvalidInput,
			"order_by must be one of 'start_date', 'end_date', or 'execution_date'").
			WithContext("field", "order_by").
			WithContext("value", orderBy)
	}
	orderToken := orderBy
	if descending {
		orderToken = "-" + orderBy
	}
	op.Set("order_by", orderBy)
	op.Set("descending", descending)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListDagRuns(ctx, dagID, airflow.ListDagRunsOptions{
		Limit:   intArg(args, "limit", 100),
		Offset:  intArg(args, "offset", 0),
		States:  states,
		OrderBy: orderToken,
	})
	if err != nil {
		return nil, err
	}

	runs := make([]map[string]interface{}, 0, len(resp.DagRuns))
	for _, r := range resp.DagRuns {
		entry := map[string]interface{}{
			"dag_run_id": r.DagRunID,
			"state":      r.State,
			"start_date": r.StartDate,
			"end_date":   r.EndDate,
			"ui_url":     nil,
		}
		if r.DagRunID != "" {
			entry["ui_url"] = s.uiURL(resolved.Instance, target.RouteDagRun, dagID,
				target.BuildOpts{DagRunID: r.DagRunID})
		}
		runs = append(runs, entry)
	}
	return map[string]interface{}{
		"dag_runs": runs,
		"count":    resp.TotalEntries,
	}, nil
}

func (s *Server) getDagRun(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
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
	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	run, err := client.GetDagRun(ctx, dagID, runID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dag_run": run,
		"ui_url":  s.uiURL(resolved.Instance, target.RouteDagRun, dagID, target.BuildOpts{DagRunID: runID}),
	}, nil
}

func (s *Server) clearDagRun(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
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
	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)
	op.Set("dry_run", boolValue(args, "dry_run", false))

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ClearDagRun(ctx, dagID, runID, airflow.ClearDagRunRequest{
		DryRun:            boolValue(args, "dry_run", false),
		IncludeSubdags:    boolArg(args, "include_subdags"),
		IncludeParentdag:  boolArg(args, "include_parentdag"),
		IncludeUpstream:   boolArg(args, "include_upstream"),
		IncludeDownstream: boolArg(args, "include_downstream"),
		ResetDagRuns:      boolArg(args, "reset_dag_runs"),
	})
	if err != nil {
		return nil, err
	}

	var cleared interface{} = resp
	if v, ok := resp["cleared"]; ok {
		cleared = v
	}
	return map[string]interface{}{
		"dag_id":     dagID,
		"dag_run_id": runID,
		"cleared":    cleared,
	}, nil
}
