package airflow

import "encoding/json"

// Response models for the Airflow stable REST API (v1). Only the fields the
// tools consume are typed; timestamps stay strings so payloads echo exactly
// what the backend reported.

// DAG is a single DAG as returned by /dags and /dags/{dag_id}.
type DAG struct {
	DagID            string          `json:"dag_id"`
	IsPaused         *bool           `json:"is_paused,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Owners           []string        `json:"owners,omitempty"`
	Tags             []DagTag        `json:"tags,omitempty"`
	ScheduleInterval json.RawMessage `json:"schedule_interval,omitempty"`
	NextDagrun       *string         `json:"next_dagrun,omitempty"`
	MaxActiveRuns    *int            `json:"max_active_runs,omitempty"`
	Fileloc          *string         `json:"fileloc,omitempty"`
}

// DagTag is a DAG tag object.
type DagTag struct {
	Name string `json:"name"`
}

// DAGCollection is the paginated /dags response.
type DAGCollection struct {
	Dags         []DAG `json:"dags"`
	TotalEntries int   `json:"total_entries"`
}

// DAGRun is a single DAG run.
type DAGRun struct {
	DagRunID        string                 `json:"dag_run_id"`
	DagID           string                 `json:"dag_id"`
	LogicalDate     *string                `json:"logical_date,omitempty"`
	ExecutionDate   *string                `json:"execution_date,omitempty"`
	StartDate       *string                `json:"start_date,omitempty"`
	EndDate         *string                `json:"end_date,omitempty"`
	State           string                 `json:"state"`
	RunType         *string                `json:"run_type,omitempty"`
	ExternalTrigger *bool                  `json:"external_trigger,omitempty"`
	Conf            map[string]interface{} `json:"conf,omitempty"`
	Note            *string                `json:"note,omitempty"`
}

// DAGRunCollection is the paginated dagRuns response.
type DAGRunCollection struct {
	DagRuns      []DAGRun `json:"dag_runs"`
	TotalEntries int      `json:"total_entries"`
}

// TriggerDagRunRequest is the POST body for creating a DAG run. Conf has no
// omitempty: Airflow requires the key even when the object is empty.
type TriggerDagRunRequest struct {
	DagRunID    string                 `json:"dag_run_id,omitempty"`
	LogicalDate string                 `json:"logical_date,omitempty"`
	Conf        map[string]interface{} `json:"conf"`
	Note        string                 `json:"note,omitempty"`
}

// TaskInstance is a single task instance.
type TaskInstance struct {
	TaskID         string                 `json:"task_id"`
	DagID          string                 `json:"dag_id,omitempty"`
	DagRunID       string                 `json:"dag_run_id,omitempty"`
	ExecutionDate  *string                `json:"execution_date,omitempty"`
	StartDate      *string                `json:"start_date,omitempty"`
	EndDate        *string                `json:"end_date,omitempty"`
	Duration       *float64               `json:"duration,omitempty"`
	State          *string                `json:"state,omitempty"`
	TryNumber      *int                   `json:"try_number,omitempty"`
	MaxTries       *int                   `json:"max_tries,omitempty"`
	Hostname       *string                `json:"hostname,omitempty"`
	Operator       *string                `json:"operator,omitempty"`
	Queue          *string                `json:"queue,omitempty"`
	Pool           *string                `json:"pool,omitempty"`
	PriorityWeight *int                   `json:"priority_weight,omitempty"`
	Note           *string                `json:"note,omitempty"`
	RenderedFields map[string]interface{} `json:"rendered_fields,omitempty"`
}

// TaskInstanceCollection is the paginated taskInstances response.
type TaskInstanceCollection struct {
	TaskInstances []TaskInstance `json:"task_instances"`
	TotalEntries  int            `json:"total_entries"`
}

// Task is the static task definition from /dags/{dag_id}/tasks/{task_id}.
type Task struct {
	TaskID     string          `json:"task_id"`
	Owner      *string         `json:"owner,omitempty"`
	Operator   *string         `json:"class_ref,omitempty"`
	Retries    *float64        `json:"retries,omitempty"`
	RetryDelay json.RawMessage `json:"retry_delay,omitempty"`
}

// ClearTaskInstancesRequest is the POST body for clearTaskInstances. The
// extended flags are only sent when the deployment's capabilities allow
// them; Airflow 2.5.x rejects unknown fields.
type ClearTaskInstancesRequest struct {
	DryRun            bool     `json:"dry_run"`
	TaskIDs           []string `json:"task_ids,omitempty"`
	StartDate         string   `json:"start_date,omitempty"`
	EndDate           string   `json:"end_date,omitempty"`
	OnlyFailed        *bool    `json:"only_failed,omitempty"`
	OnlyRunning       *bool    `json:"only_running,omitempty"`
	IncludeSubdags    *bool    `json:"include_subdags,omitempty"`
	IncludeParentdag  *bool    `json:"include_parentdag,omitempty"`
	IncludeUpstream   *bool    `json:"include_upstream,omitempty"`
	IncludeDownstream *bool    `json:"include_downstream,omitempty"`
	IncludeFuture     *bool    `json:"include_future,omitempty"`
	IncludePast       *bool    `json:"include_past,omitempty"`
	ResetDagRuns      *bool    `json:"reset_dag_runs,omitempty"`
	DagRunID          string   `json:"dag_run_id,omitempty"`
}

// TaskInstanceReference identifies one task instance affected by a clear.
type TaskInstanceReference struct {
	TaskID        string  `json:"task_id"`
	DagID         string  `json:"dag_id,omitempty"`
	DagRunID      string  `json:"dag_run_id,omitempty"`
	ExecutionDate *string `json:"execution_date,omitempty"`
}

// TaskInstanceReferenceCollection is the clearTaskInstances response.
type TaskInstanceReferenceCollection struct {
	TaskInstances []TaskInstanceReference `json:"task_instances"`
	TotalEntries  int                     `json:"total_entries"`
}

// ClearDagRunRequest is the POST body for dagRuns/{id}/clear. Flags beyond
// dry_run are rejected by Airflow 2.5.x and only sent when the deployment's
// capabilities allow them.
type ClearDagRunRequest struct {
	DryRun            bool  `json:"dry_run"`
	IncludeSubdags    *bool `json:"include_subdags,omitempty"`
	IncludeParentdag  *bool `json:"include_parentdag,omitempty"`
	IncludeUpstream   *bool `json:"include_upstream,omitempty"`
	IncludeDownstream *bool `json:"include_downstream,omitempty"`
	ResetDagRuns      *bool `json:"reset_dag_runs,omitempty"`
}

// DatasetEvent is one dataset event.
type DatasetEvent struct {
	DatasetID      *int                   `json:"dataset_id,omitempty"`
	DatasetURI     string                 `json:"dataset_uri"`
	SourceDagID    *string                `json:"source_dag_id,omitempty"`
	SourceRunID    *string                `json:"source_run_id,omitempty"`
	SourceTaskID   *string                `json:"source_task_id,omitempty"`
	SourceMapIndex *int                   `json:"source_map_index,omitempty"`
	Timestamp      *string                `json:"timestamp,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

// DatasetEventCollection is the paginated datasets/events response.
type DatasetEventCollection struct {
	DatasetEvents []DatasetEvent `json:"dataset_events"`
	TotalEntries  int            `json:"total_entries"`
}
