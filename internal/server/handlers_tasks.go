package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"airflow-mcp/internal/airflow"
	"airflow-mcp/internal/logs"
	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
	"airflow-mcp/internal/toolerr"
)

const defaultMaxRenderedBytes = 100_000

func requireTaskID(args map[string]interface{}, resolved target.Resolved) (string, error) {
	taskID, err := target.ValidateTaskID(firstNonEmpty(strArg(args, "task_id"), resolved.TaskID))
	if err != nil {
		return "", err
	}
	if taskID == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing task_id").
			WithContext("field", "task_id")
	}
	return taskID, nil
}

func validateTaskIDs(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		validated, err := target.ValidateTaskID(v)
		if err != nil {
			return nil, err
		}
		out = append(out, validated)
	}
	return out, nil
}

func parseBackendTime(value *string) (time.Time, bool) {
	if value == nil {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, *value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) listTaskInstances(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
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

	states, err := stringList(args, "state")
	if err != nil {
		return nil, err
	}
	taskIDs, err := stringList(args, "task_ids")
	if err != nil {
		return nil, err
	}
	taskIDs, err = validateTaskIDs(taskIDs)
	if err != nil {
		return nil, err
	}

	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)
	if states != nil {
		op.Set("state", states)
	}
	if taskIDs != nil {
		op.Set("task_ids", taskIDs)
	}

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListTaskInstances(ctx, dagID, runID, airflow.ListTaskInstancesOptions{
		Limit:  intArg(args, "limit", 100),
		Offset: intArg(args, "offset", 0),
		States: states,
	})
	if err != nil {
		return nil, err
	}

	// Backends differ in which server-side filters they honor, so the
	// filters are re-applied here to keep results consistent.
	stateSet := make(map[string]struct{}, len(states))
	for _, st := range states {
		stateSet[strings.ToLower(st)] = struct{}{}
	}
	taskIDSet := make(map[string]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		taskIDSet[id] = struct{}{}
	}

	instances := make([]map[string]interface{}, 0, len(resp.TaskInstances))
	for _, ti := range resp.TaskInstances {
		state := ""
		if ti.State != nil {
			state = *ti.State
		}
		if len(stateSet) > 0 {
			if _, ok := stateSet[strings.ToLower(state)]; !ok {
				continue
			}
		}
		if len(taskIDSet) > 0 {
			if _, ok := taskIDSet[ti.TaskID]; !ok {
				continue
			}
		}
		entry := map[string]interface{}{
			"task_id":    ti.TaskID,
			"state":      ti.State,
			"try_number": ti.TryNumber,
			"start_date": ti.StartDate,
			"end_date":   ti.EndDate,
			"ui_url":     nil,
		}
		if ti.TaskID != "" && ti.TryNumber != nil {
			entry["ui_url"] = s.uiURL(resolved.Instance, target.RouteLog, dagID, target.BuildOpts{
				DagRunID:  runID,
				TaskID:    ti.TaskID,
				TryNumber: *ti.TryNumber,
			})
		}
		instances = append(instances, entry)
	}

	payload := map[string]interface{}{
		"task_instances": instances,
		"count":          len(instances),
		"total_entries":  resp.TotalEntries,
	}
	if states != nil || taskIDs != nil {
		payload["filters"] = map[string]interface{}{
			"state":    states,
			"task_ids": taskIDs,
		}
	}
	return payload, nil
}

func (s *Server) getTaskInstance(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
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

	includeRendered := boolValue(args, "include_rendered", false)
	maxRenderedBytes := defaultMaxRenderedBytes
	if includeRendered {
		if raw, ok := args["max_rendered_bytes"]; ok && raw != nil {
			n, ok := logs.CoerceInt(raw)
			if !ok || n <= 0 {
				return nil, toolerr.New(toolerr.CodeInvalidInput, "max_rendered_bytes must be a positive integer").
					WithContext("field", "max_rendered_bytes").
					WithContext("value", raw)
			}
			maxRenderedBytes = n
		}
	}

	op.Set("dag_id", dagID)
	op.Set("dag_run_id", runID)
	op.Set("task_id", taskID)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	ti, err := client.GetTaskInstance(ctx, dagID, runID, taskID)
	if err != nil {
		return nil, err
	}

	var durationMS interface{}
	if start, ok := parseBackendTime(ti.StartDate); ok {
		if end, ok := parseBackendTime(ti.EndDate); ok {
			ms := end.Sub(start).Milliseconds()
			if ms < 0 {
				ms = 0
			}
			durationMS = ms
		}
	}

	taskInstancePayload := map[string]interface{}{
		"task_id":         taskID,
		"state":           ti.State,
		"try_number":      ti.TryNumber,
		"start_date":      ti.StartDate,
		"end_date":        ti.EndDate,
		"duration_ms":     durationMS,
		"hostname":        ti.Hostname,
		"operator":        ti.Operator,
		"queue":           ti.Queue,
		"pool":            ti.Pool,
		"priority_weight": ti.PriorityWeight,
	}

	// The task definition carries the retry settings the instance endpoint
	// omits. It is best effort; a missing definition degrades the payload,
	// it does not fail the call.
	var retriesConfigured interface{}
	var retriesConfiguredInt int
	haveRetries := false
	taskConfigPayload := map[string]interface{}{
		"retries":     nil,
		"retry_delay": nil,
		"owner":       nil,
	}
	if task, taskErr := client.GetTask(ctx, dagID, taskID); taskErr == nil {
		if task.Retries != nil {
			retriesConfiguredInt = int(*task.Retries)
			retriesConfigured = retriesConfiguredInt
			haveRetries = true
			taskConfigPayload["retries"] = retriesConfiguredInt
		}
		if task.RetryDelay != nil {
			taskConfigPayload["retry_delay"] = json.RawMessage(task.RetryDelay)
		}
		if task.Owner != nil {
			taskConfigPayload["owner"] = *task.Owner
		}
	}

	// Attempt accounting is derived: Airflow's try_number counts started
	// attempts, so consumed retries are try_number-1, floored at zero.
	attemptsPayload := map[string]interface{}{
		"try_number":         ti.TryNumber,
		"retries_configured": retriesConfigured,
		"retries_consumed":   nil,
		"retries_remaining":  nil,
	}
	if ti.TryNumber != nil {
		consumed := *ti.TryNumber - 1
		if consumed < 0 {
			consumed = 0
		}
		attemptsPayload["retries_consumed"] = consumed
		if haveRetries {
			remaining := retriesConfiguredInt - consumed
			if remaining < 0 {
				remaining = 0
			}
			attemptsPayload["retries_remaining"] = remaining
		}
	}

	uiPayload := map[string]interface{}{
		"grid": s.uiURL(resolved.Instance, target.RouteGrid, dagID, target.BuildOpts{DagRunID: runID}),
		"log":  nil,
	}
	if ti.TryNumber != nil && *ti.TryNumber > 0 {
		uiPayload["log"] = s.uiURL(resolved.Instance, target.RouteLog, dagID, target.BuildOpts{
			DagRunID:  runID,
			TaskID:    taskID,
			TryNumber: *ti.TryNumber,
		})
	}

	payload := map[string]interface{}{
		"task_instance": taskInstancePayload,
		"task_config":   taskConfigPayload,
		"attempts":      attemptsPayload,
		"ui_url":        uiPayload,
	}

	if includeRendered {
		fields := ti.RenderedFields
		if fields == nil {
			fields = map[string]interface{}{}
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, toolerr.Newf(toolerr.CodeInternal, "encoding rendered fields: %v", err)
		}
		truncated := len(encoded) > maxRenderedBytes
		var fieldsOut interface{} = fields
		if truncated {
			replacement := map[string]interface{}{"_truncated": "Increase max_rendered_bytes"}
			encoded, _ = json.Marshal(replacement)
			fieldsOut = replacement
		}
		payload["rendered_fields"] = map[string]interface{}{
			"fields":         fieldsOut,
			"bytes_returned": len(encoded),
			"truncated":      truncated,
		}
	}
	return payload, nil
}

func (s *Server) clearTaskInstances(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	dagID, err := requireDagID(args, resolved)
	if err != nil {
		return nil, err
	}

	taskIDs, err := stringList(args, "task_ids")
	if err != nil {
		return nil, err
	}
	taskIDs, err = validateTaskIDs(taskIDs)
	if err != nil {
		return nil, err
	}
	startDate, err := isoTimeArg(args, "start_date")
	if err != nil {
		return nil, err
	}
	endDate, err := isoTimeArg(args, "end_date")
	if err != nil {
		return nil, err
	}

	op.Set("dag_id", dagID)
	if taskIDs != nil {
		op.Set("task_ids", taskIDs)
	}
	op.Set("dry_run", boolValue(args, "dry_run", false))

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ClearTaskInstances(ctx, dagID, airflow.ClearTaskInstancesRequest{
		DryRun:            boolValue(args, "dry_run", false),
		TaskIDs:           taskIDs,
		StartDate:         startDate,
		EndDate:           endDate,
		OnlyFailed:        boolArg(args, "only_failed"),
		OnlyRunning:       boolArg(args, "only_running"),
		IncludeSubdags:    boolArg(args, "include_subdags"),
		IncludeParentdag:  boolArg(args, "include_parentdag"),
		IncludeUpstream:   boolArg(args, "include_upstream"),
		IncludeDownstream: boolArg(args, "include_downstream"),
		IncludeFuture:     boolArg(args, "include_future"),
		IncludePast:       boolArg(args, "include_past"),
		ResetDagRuns:      boolArg(args, "reset_dag_runs"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dag_id":  dagID,
		"cleared": resp,
	}, nil
}
