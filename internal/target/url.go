// Package target resolves which deployment and which domain identifiers a
// tool call targets, from an explicit instance key and/or an Airflow UI URL.
// URL host matching is an exact-string allow-list against the registry; this
// is the SSRF guard and never falls back to partial or DNS-based matching.
package target

import (
	"net/url"
	"strconv"
	"strings"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
)

// Route names the UI view a URL pointed at. Unknown path shapes resolve to
// RouteUnknown with whatever identifiers were extractable.
type Route string

const (
	RouteGrid    Route = "grid"
	RouteGraph   Route = "graph"
	RouteDagRun  Route = "dag_run"
	RouteTask    Route = "task"
	RouteLog     Route = "log"
	RouteUnknown Route = "unknown"
)

// Resolved is a validated resolution of a tool call target. TryNumber 0
// means "not present in the URL"; Airflow attempt numbers start at 1.
type Resolved struct {
	Instance  string
	Route     Route
	DagID     string
	DagRunID  string
	TaskID    string
	TryNumber int
}

// ParseUIURL extracts the deployment and identifiers from an Airflow UI URL.
// The URL must be absolute http(s); its hostname must exactly match a
// configured deployment host or the parse fails with UNKNOWN_HOST.
// Identifiers the path does not carry stay empty; they are never defaulted.
func ParseUIURL(reg *registry.Registry, rawURL string) (Resolved, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Resolved{}, toolerr.New(toolerr.CodeInvalidInput, "Invalid URL").
			WithContext("value", rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return Resolved{}, toolerr.Newf(toolerr.CodeInvalidInput,
			"ui_url must be a full http(s) URL, got '%s'", rawURL).
			WithContext("value", rawURL)
	}
	if scheme != "http" && scheme != "https" {
		return Resolved{}, toolerr.New(toolerr.CodeInvalidInput, "ui_url must start with http or https").
			WithContext("scheme", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return Resolved{}, toolerr.New(toolerr.CodeInvalidInput, "Missing hostname in URL").
			WithContext("value", rawURL)
	}

	key, ok := reg.KeyForHost(host)
	if !ok {
		return Resolved{}, toolerr.Newf(toolerr.CodeUnknownHost,
			"Unknown instance host '%s'; ensure it matches one of airflow_list_instances()", host).
			WithContext("host", host)
	}

	resolved := Resolved{Instance: key, Route: RouteUnknown}

	segments := splitPath(parsed.Path)
	query := parsed.Query()

	if len(segments) < 2 || segments[0] != "dags" {
		return resolved, nil
	}

	dagID, err := ValidateDagID(segments[1])
	if err != nil {
		return Resolved{}, err
	}
	resolved.DagID = dagID

	if len(segments) < 3 {
		return resolved, nil
	}

	switch segments[2] {
	case "grid", "graph":
		resolved.Route = Route(segments[2])
		runID, err := ValidateDagRunID(query.Get("dag_run_id"))
		if err != nil {
			return Resolved{}, err
		}
		resolved.DagRunID = runID

	case "dagRuns":
		if len(segments) < 4 {
			return resolved, nil
		}
		runID, err := ValidateDagRunID(segments[3])
		if err != nil {
			return Resolved{}, err
		}
		resolved.DagRunID = runID
		resolved.Route = RouteDagRun

		if len(segments) >= 8 && segments[4] == "taskInstances" && segments[6] == "logs" {
			taskID, err := ValidateTaskID(segments[5])
			if err != nil {
				return Resolved{}, err
			}
			resolved.TaskID = taskID
			// A malformed attempt number degrades to "not present" rather
			// than failing the whole resolution.
			if n, convErr := strconv.Atoi(segments[7]); convErr == nil {
				resolved.TryNumber = n
			}
			resolved.Route = RouteLog
		}

	case "task":
		resolved.Route = RouteTask
		taskID, err := ValidateTaskID(query.Get("task_id"))
		if err != nil {
			return Resolved{}, err
		}
		runID, err := ValidateDagRunID(query.Get("dag_run_id"))
		if err != nil {
			return Resolved{}, err
		}
		resolved.TaskID = taskID
		resolved.DagRunID = runID
	}

	return resolved, nil
}

// splitPath decodes and splits a URL path into non-empty segments.
func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if decoded, err := url.PathUnescape(seg); err == nil {
			seg = decoded
		}
		segments = append(segments, seg)
	}
	return segments
}
