package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
	}
}

func writeAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(true),
		IdempotentHint:  mcp.ToBoolPtr(false),
	}
}

// targetOptions are shared by every tool that addresses one deployment.
func targetOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("instance",
			mcp.Description("Instance key from the registry (e.g. \"data-prod\")"),
		),
		mcp.WithString("ui_url",
			mcp.Description("Airflow UI URL identifying the instance (takes precedence over 'instance')"),
		),
	}
}

func newTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, extra...)
	return mcp.NewTool(name, opts...)
}

func (s *Server) registerTools() {
	// Discovery tools.
	s.mcp.AddTool(newTool("airflow_list_instances",
		"List configured Airflow instance keys and the default instance",
		mcp.WithToolAnnotation(readOnlyAnnotation()),
	), s.tool("airflow_list_instances", s.listInstances))

	s.mcp.AddTool(newTool("airflow_describe_instance",
		"Describe a configured Airflow instance (host and metadata, never secrets)",
		mcp.WithToolAnnotation(readOnlyAnnotation()),
		mcp.WithString("instance",
			mcp.Required(),
			mcp.Description("Instance key"),
		),
	), s.tool("airflow_describe_instance", s.describeInstance))

	s.mcp.AddTool(newTool("airflow_resolve_url",
		"Resolve an Airflow UI URL to its instance and identifiers",
		mcp.WithToolAnnotation(readOnlyAnnotation()),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Airflow UI URL to resolve"),
		),
	), s.tool("airflow_resolve_url", s.resolveURL))

	// DAG tools.
	s.mcp.AddTool(newTool("airflow_list_dags",
		"List DAGs with basic metadata and UI URLs",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("limit", mcp.Description("Page size (default 100)")),
			mcp.WithNumber("offset", mcp.Description("Page offset (default 0)")),
		)...,
	), s.tool("airflow_list_dags", s.listDags))

	s.mcp.AddTool(newTool("airflow_get_dag",
		"Get DAG details and a UI URL",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier (required unless ui_url carries it)")),
		)...,
	), s.tool("airflow_get_dag", s.getDag))

	s.mcp.AddTool(newTool("airflow_pause_dag",
		"Pause DAG scheduling",
		append(targetOptions(),
			mcp.WithToolAnnotation(writeAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier (required unless ui_url carries it)")),
		)...,
	), s.tool("airflow_pause_dag", s.pauseDag))

	s.mcp.AddTool(newTool("airflow_unpause_dag",
		"Unpause DAG scheduling",
		append(targetOptions(),
			mcp.WithToolAnnotation(writeAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier (required unless ui_url carries it)")),
		)...,
	), s.tool("airflow_unpause_dag", s.unpauseDag))

	s.mcp.AddTool(newTool("airflow_trigger_dag",
		"Trigger a DAG run with optional configuration",
		append(targetOptions(),
			mcp.WithToolAnnotation(writeAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier (required unless ui_url carries it)")),
			mcp.WithString("dag_run_id", mcp.Description("Optional custom run identifier")),
			mcp.WithString("logical_date", mcp.Description("ISO-8601 logical date for the run")),
			mcp.WithObject("conf", mcp.Description("Optional run configuration (object, or JSON string)")),
			mcp.WithString("note", mcp.Description("Optional run note")),
		)...,
	), s.tool("airflow_trigger_dag", s.triggerDag))

	// DAG run tools.
	s.mcp.AddTool(newTool("airflow_list_dag_runs",
		"List DAG runs for a DAG with per-run UI URLs",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier (required unless ui_url carries it)")),
			mcp.WithNumber("limit", mcp.Description("Page size (default 100)")),
			mcp.WithNumber("offset", mcp.Description("Page offset (default 0)")),
			mcp.WithArray("state",
				mcp.Description("Optional run states to include (e.g. [\"failed\"])"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithString("order_by",
				mcp.Description("Ordering field: start_date, end_date, or execution_date (default execution_date)"),
				mcp.Enum("start_date", "end_date", "execution_date"),
			),
			mcp.WithBoolean("descending", mcp.Description("Sort direction (default true)")),
		)...,
	), s.tool("airflow_list_dag_runs", s.listDagRuns))

	s.mcp.AddTool(newTool("airflow_get_dag_run",
		"Get a DAG run and a UI URL",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithString("dag_run_id", mcp.Description("DAG run identifier")),
		)...,
	), s.tool("airflow_get_dag_run", s.getDagRun))

	s.mcp.AddTool(newTool("airflow_clear_dag_run",
		"Clear all task instances within a DAG run",
		append(targetOptions(),
			mcp.WithToolAnnotation(writeAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithString("dag_run_id", mcp.Description("DAG run identifier")),
			mcp.WithBoolean("dry_run", mcp.Description("Report affected task instances without clearing (default false)")),
			mcp.WithBoolean("include_subdags", mcp.Description("Clear tasks in subdags (needs extended clear support)")),
			mcp.WithBoolean("include_parentdag", mcp.Description("Clear tasks in the parent DAG (needs extended clear support)")),
			mcp.WithBoolean("include_upstream", mcp.Description("Clear upstream tasks (needs extended clear support)")),
			mcp.WithBoolean("include_downstream", mcp.Description("Clear downstream tasks (needs extended clear support)")),
			mcp.WithBoolean("reset_dag_runs", mcp.Description("Reset DAG run state (needs extended clear support)")),
		)...,
	), s.tool("airflow_clear_dag_run", s.clearDagRun))

	// Task instance tools.
	s.mcp.AddTool(newTool("airflow_list_task_instances",
		"List task instances for a DAG run",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithString("dag_run_id", mcp.Description("DAG run identifier")),
			mcp.WithNumber("limit", mcp.Description("Page size (default 100)")),
			mcp.WithNumber("offset", mcp.Description("Page offset (default 0)")),
			mcp.WithArray("state",
				mcp.Description("Optional task states to include (case-insensitive)"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithArray("task_ids",
				mcp.Description("Optional task IDs to include"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		)...,
	), s.tool("airflow_list_task_instances", s.listTaskInstances))

	s.mcp.AddTool(newTool("airflow_get_task_instance",
		"Get task instance metadata, task config, attempt summary, and optional rendered fields",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithString("dag_run_id", mcp.Description("DAG run identifier")),
			mcp.WithString("task_id", mcp.Description("Task identifier")),
			mcp.WithBoolean("include_rendered", mcp.Description("Include rendered template fields (default false)")),
			mcp.WithNumber("max_rendered_bytes", mcp.Description("Byte cap for rendered fields (default 100000)")),
		)...,
	), s.tool("airflow_get_task_instance", s.getTaskInstance))

	s.mcp.AddTool(newTool("airflow_get_task_instance_logs",
		"Fetch task instance logs for one attempt with optional filtering",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithString("dag_run_id", mcp.Description("DAG run identifier")),
			mcp.WithString("task_id", mcp.Description("Task identifier")),
			mcp.WithNumber("try_number", mcp.Description("Attempt number (1-based)")),
			mcp.WithString("filter_level",
				mcp.Description("Keep only matching lines: error, warning, or info"),
				mcp.Enum("error", "warning", "info"),
			),
			mcp.WithNumber("context_lines", mcp.Description("Lines of context around each match (0-1000)")),
			mcp.WithNumber("tail_lines", mcp.Description("Keep only the last N lines before filtering (0-100000)")),
			mcp.WithNumber("max_bytes", mcp.Description("Byte cap on the returned log (default 100000)")),
		)...,
	), s.tool("airflow_get_task_instance_logs", s.getTaskInstanceLogs))

	s.mcp.AddTool(newTool("airflow_clear_task_instances",
		"Clear task instances across a DAG with optional filters",
		append(targetOptions(),
			mcp.WithToolAnnotation(writeAnnotation()),
			mcp.WithString("dag_id", mcp.Description("DAG identifier")),
			mcp.WithArray("task_ids",
				mcp.Description("Optional task IDs to clear"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithString("start_date", mcp.Description("ISO-8601 window start")),
			mcp.WithString("end_date", mcp.Description("ISO-8601 window end")),
			mcp.WithBoolean("only_failed", mcp.Description("Only clear failed task instances")),
			mcp.WithBoolean("only_running", mcp.Description("Only clear running task instances")),
			mcp.WithBoolean("include_subdags", mcp.Description("Clear tasks in subdags")),
			mcp.WithBoolean("include_parentdag", mcp.Description("Clear tasks in the parent DAG")),
			mcp.WithBoolean("include_upstream", mcp.Description("Clear upstream tasks (needs extended clear support)")),
			mcp.WithBoolean("include_downstream", mcp.Description("Clear downstream tasks (needs extended clear support)")),
			mcp.WithBoolean("include_future", mcp.Description("Clear future runs (needs extended clear support)")),
			mcp.WithBoolean("include_past", mcp.Description("Clear past runs (needs extended clear support)")),
			mcp.WithBoolean("dry_run", mcp.Description("Report affected task instances without clearing (default false)")),
			mcp.WithBoolean("reset_dag_runs", mcp.Description("Reset affected DAG run state")),
		)...,
	), s.tool("airflow_clear_task_instances", s.clearTaskInstances))

	// Dataset tools.
	s.mcp.AddTool(newTool("airflow_dataset_events",
		"List dataset events for a dataset URI",
		append(targetOptions(),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dataset_uri",
				mcp.Required(),
				mcp.Description("Dataset URI"),
			),
			mcp.WithNumber("limit", mcp.Description("Max events (default 50)")),
		)...,
	), s.tool("airflow_dataset_events", s.datasetEvents))
}
