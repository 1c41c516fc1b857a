package server

import (
	"context"

	"airflow-mcp/internal/airflow"
	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
	"airflow-mcp/internal/toolerr"
)

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// requireDagID picks the DAG id from the explicit argument or the resolved
// URL, validating either way.
func requireDagID(args map[string]interface{}, resolved target.Resolved) (string, error) {
	dagID, err := target.ValidateDagID(firstNonEmpty(strArg(args, "dag_id"), resolved.DagID))
	if err != nil {
		return "", err
	}
	if dagID == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing dag_id").
			WithContext("field", "dag_id")
	}
	return dagID, nil
}

func requireDagRunID(args map[string]interface{}, resolved target.Resolved) (string, error) {
	runID, err := target.ValidateDagRunID(firstNonEmpty(strArg(args, "dag_run_id"), resolved.DagRunID))
	if err != nil {
		return "", err
	}
	if runID == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing dag_run_id").
			WithContext("field", "dag_run_id")
	}
	return runID, nil
}

// uiURL builds a deployment deep link, degrading to nil rather than failing
// the whole call when an identifier the backend returned does not validate.
func (s *Server) uiURL(instance string, route target.Route, dagID string, opts target.BuildOpts) interface{} {
	u, err := target.BuildUIURL(s.factory.Registry(), instance, route, dagID, opts)
	if err != nil {
		return nil
	}
	return u
}

func (s *Server) listDags(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	limit := intArg(args, "limit", 100)
	offset := intArg(args, "offset", 0)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListDags(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	dags := make([]map[string]interface{}, 0, len(resp.Dags))
	for _, d := range resp.Dags {
		entry := map[string]interface{}{
			"dag_id":    d.DagID,
			"is_paused": d.IsPaused,
			"ui_url":    nil,
		}
		if d.DagID != "" {
			entry["ui_url"] = s.uiURL(resolved.Instance, target.RouteGrid, d.DagID, target.BuildOpts{})
		}
		dags = append(dags, entry)
	}
	return map[string]interface{}{
		"dags":  dags,
		"count": resp.TotalEntries,
	}, nil
}

func (s *Server) getDag(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}
	op.Set("dag_id", dagID)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	dag, err := client.GetDag(ctx, dagID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dag":    dag,
		"ui_url": s.uiURL(resolved.Instance, target.RouteGrid, dagID, target.BuildOpts{}),
	}, nil
}

func (s *Server) pauseDag(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	return s.setDagPaused(ctx, op, args, true)
}

func (s *Server) unpauseDag(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	return s.setDagPaused(ctx, op, args, false)
}

func (s *Server) setDagPaused(ctx context.Context, op *ops.Operation, args map[string]interface{}, paused bool) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}
	op.Set("dag_id", dagID)
	op.Set("desired_state", paused)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	dag, err := client.SetDagPaused(ctx, dagID, paused)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dag_id":    dagID,
		"is_paused": paused,
		"dag":       dag,
		"ui_url":    s.uiURL(resolved.Instance, target.RouteGrid, dagID, target.BuildOpts{}),
	}, nil
}

func (s *Server) triggerDag(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}
	runID, err := target.ValidateDagRunID(strArg(args, "dag_run_id"))
	if err != nil {
		return nil, err
	}
	logicalDate, err := isoTimeArg(args, "logical_date")
	if err != nil {
		return nil, err
	}
	conf, err := confArg(args)
	if err != nil {
		return nil, err
	}
	if raw, ok := args["note"]; ok && raw != nil {
		if _, isString := raw.(string); !isString {
			return nil, toolerr.New(toolerr.CodeInvalidInput, "note must be a string").
				WithContext("field", "note").
				WithContext("value", raw)
		}
	}
	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	run, err := client.TriggerDagRun(ctx, dagID, airflow.TriggerDagRunRequest{
		DagRunID:    runID,
		LogicalDate: logicalDate,
		Conf:        conf,
		Note:        strArg(args, "note"),
	})
	if err != nil {
		return nil, err
	}

	responseRunID := firstNonEmpty(run.DagRunID, runID)
	if responseRunID == "" {
		return nil, toolerr.New(toolerr.CodeInternal, "Airflow did not return a dag_run_id").
			WithContext("dag_id", dagID)
	}
	return map[string]interface{}{
		"dag_run_id": responseRunID,
		"ui_url":     s.uiURL(resolved.Instance, target.RouteDagRun, dagID, target.BuildOpts{DagRunID: responseRunID}),
		"dag_run":    run,
	}, nil
}
