package server

import (
	"context"

	"airflow-mcp/internal/ops"
	"airflow-mcp/internal/target"
)

func (s *Server) datasetEvents(ctx context.Context, op *ops.Operation, args map[string]interface{}) (map[string]interface{}, error) {
	datasetURI, err := target.ValidateDatasetURI(strArg(args, "dataset_uri"))
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolveTarget(op, args)
	if err != nil {
		return nil, err
	}
	op.Set("dataset_uri", datasetURI)

	client, err := s.factory.Client(resolved.Instance)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListDatasetEvents(ctx, datasetURI, intArg(args, "limit", 50))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"events": resp.DatasetEvents,
		"count":  resp.TotalEntries,
	}, nil
}
