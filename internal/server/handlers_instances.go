package server

import (
	"context"

	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
)

func (s *Server) listInstances(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	reg := s.factory.Registry()
	return map[string]interface{}{
		"instances":        reg.Keys(),
		"default_instance": nilIfEmpty(reg.DefaultKey()),
	}, nil
}

func (s *Server) describeInstance(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	instance, err := target.ValidateInstanceKey(strArg(args, "instance"))
	if err != nil {
		return nil, err
	}
	op.Set("instance", instance)

	desc, err := s.factory.Registry().Describe(instance)
	if err != nil {
		return nil, err
	}
	caps, err := s.factory.Capabilities(instance)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"instance":     desc.Key,
		"host":         desc.Host,
		"api_version":  desc.APIVersion,
		"verify_ssl":   desc.VerifySSL,
		"auth_type":    desc.AuthType,
		"capabilities": caps,
	}, nil
}

func (s *Server) resolveURL(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	resolved, err := target.ParseUIURL(s.factory.Registry(), strArg(args, "url"))
	if err != nil {
		return nil, err
	}
	op.Set("instance", resolved.Instance)
	op.Set("route", string(resolved.Route))

	payload := map[string]interface{}{
		"instance":   resolved.Instance,
		"route":      string(resolved.Route),
		"dag_id":     nilIfEmpty(resolved.DagID),
		"dag_run_id": nilIfEmpty(resolved.DagRunID),
		"task_id":    nilIfEmpty(resolved.TaskID),
	}
	if resolved.TryNumber > 0 {
		payload["try_number"] = resolved.TryNumber
	} else {
		payload["try_number"] = nil
	}
	return payload, nil
}
