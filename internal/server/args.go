package server

import (
	"encoding/json"
	"strings"
	"time"

	"airflow-mcp/internal/logs"
	"airflow-mcp/internal/toolerr"
)

// Argument extraction for loosely-typed MCP tool calls. Assistants send
// numbers as float64, sometimes as strings, and omit keys freely; these
// helpers coerce where the value is unambiguous and reject where it is not.

func strArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg coerces a numeric argument, falling back to def when absent or
// unusable and flooring negatives at zero.
func intArg(args map[string]interface{}, key string, def int) int {
	n, ok := logs.CoerceInt(args[key])
	if !ok {
		return def
	}
	if n < 0 {
		return 0
	}
	return n
}

// boolArg returns nil when the key is absent so callers can distinguish
// "not given" from an explicit false.
func boolArg(args map[string]interface{}, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func boolValue(args map[string]interface{}, key string, def bool) bool {
	if v := boolArg(args, key); v != nil {
		return *v
	}
	return def
}

// stringList accepts a single string or a list of strings, trimming and
// dropping empties. Any other shape is INVALID_INPUT.
func stringList(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var values []string
	switch v := raw.(type) {
	case string:
		values = []string{v}
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, toolerr.Newf(toolerr.CodeInvalidInput, "%s entries must be strings", key).
					WithContext("field", key).
					WithContext("value", item)
			}
			values = append(values, s)
		}
	case []string:
		values = v
	default:
		return nil, toolerr.Newf(toolerr.CodeInvalidInput, "%s must be a list of strings", key).
			WithContext("field", key)
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, item := range values {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, toolerr.Newf(toolerr.CodeInvalidInput, "%s entries cannot be empty", key).
				WithContext("field", key)
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// confArg accepts a run configuration as an object or a JSON string.
func confArg(args map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := args["conf"]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, toolerr.New(toolerr.CodeInvalidInput, "conf must be a JSON object").
				WithContext("field", "conf")
		}
		return out, nil
	default:
		return nil, toolerr.New(toolerr.CodeInvalidInput, "conf must be a JSON object").
			WithContext("field", "conf").
			WithContext("value", raw)
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// isoTimeArg validates an optional ISO-8601 timestamp and returns it in
// RFC3339 form. Naive timestamps are treated as UTC, which is how Airflow
// interprets them.
func isoTimeArg(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", toolerr.Newf(toolerr.CodeInvalidInput, "%s must be an ISO-8601 timestamp string", key).
			WithContext("field", key).
			WithContext("value", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", toolerr.Newf(toolerr.CodeInvalidInput, "Invalid %s, expected ISO-8601", key).
		WithContext("field", key).
		WithContext("value", s)
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
