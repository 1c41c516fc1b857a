package target

import (
	"fmt"
	"strings"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
)

// encodeSegment percent-encodes an identifier with no safe characters
// beyond the unreserved set, so ids containing ':' or '+' survive both path
// and query placement.
func encodeSegment(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// BuildOpts carries the optional identifiers for BuildUIURL.
type BuildOpts struct {
	DagRunID  string
	TaskID    string
	TryNumber int
}

// BuildUIURL constructs a deployment UI URL for the given route so tool
// payloads can hand the caller a clickable deep link. Identifiers are
// validated and percent-encoded; unsupported route/identifier combinations
// fail with INVALID_INPUT.
func BuildUIURL(reg *registry.Registry, instance string, route Route, dagID string, opts BuildOpts) (string, error) {
	instance, err := ValidateInstanceKey(instance)
	if err != nil {
		return "", err
	}
	dagID, err = ValidateDagID(dagID)
	if err != nil {
		return "", err
	}
	if dagID == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing dag_id").
			WithContext("field", "dag_id")
	}

	inst, err := reg.Get(instance)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(inst.Host, "/")

	runID, err := ValidateDagRunID(opts.DagRunID)
	if err != nil {
		return "", err
	}
	taskID, err := ValidateTaskID(opts.TaskID)
	if err != nil {
		return "", err
	}

	encodedDag := encodeSegment(dagID)

	switch route {
	case RouteGrid, RouteGraph:
		u := fmt.Sprintf("%s/dags/%s/%s", base, encodedDag, route)
		if runID != "" {
			u += "?dag_run_id=" + encodeSegment(runID)
		}
		return u, nil

	case RouteDagRun:
		if runID != "" {
			return fmt.Sprintf("%s/dags/%s/dagRuns/%s", base, encodedDag, encodeSegment(runID)), nil
		}

	case RouteTask:
		if taskID != "" {
			u := fmt.Sprintf("%s/dags/%s/task?task_id=%s", base, encodedDag, encodeSegment(taskID))
			if runID != "" {
				u += "&dag_run_id=" + encodeSegment(runID)
			}
			return u, nil
		}

	case RouteLog:
		if runID != "" && taskID != "" && opts.TryNumber > 0 {
			return fmt.Sprintf("%s/dags/%s/dagRuns/%s/taskInstances/%s/logs/%d",
				base, encodedDag, encodeSegment(runID), encodeSegment(taskID), opts.TryNumber), nil
		}
	}

	return "", toolerr.Newf(toolerr.CodeInvalidInput,
		"Unsupported route '%s' or missing identifiers", route).
		WithContext("route", string(route)).
		WithContext("dag_id", dagID)
}
