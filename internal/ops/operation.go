// Package ops emits structured per-operation logs for tool executions. Every
// tool call gets an Operation with a unique request_id; the same id is
// injected into the success payload or error envelope returned to the
// caller, so a caller-visible failure can be correlated with server-side
// diagnostics.
package ops

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"airflow-mcp/internal/toolerr"
	"airflow-mcp/pkg/logging"

	"github.com/google/uuid"
)

const subsystem = "Operation"

// Operation tracks a single in-flight tool execution.
type Operation struct {
	tool      string
	requestID string
	start     time.Time
	fields    map[string]interface{}
	completed bool
}

// Begin starts an operation for the named tool and logs tool_start.
// Operations are not safe for concurrent use; each tool call owns its own.
func Begin(tool string) *Operation {
	op := &Operation{
		tool:      tool,
		requestID: strings.ReplaceAll(uuid.NewString(), "-", ""),
		start:     time.Now(),
		fields:    make(map[string]interface{}),
	}
	logging.InfoAttrs(subsystem, "tool_start", op.attrs()...)
	return op
}

// RequestID returns the correlation token for this operation.
func (op *Operation) RequestID() string {
	return op.requestID
}

// Set records a context field that is attached to every subsequent log line
// for this operation. Nil values are dropped.
func (op *Operation) Set(key string, value interface{}) {
	if value == nil {
		return
	}
	op.fields[key] = value
}

// Success injects the request_id into payload, logs tool_success with the
// response size, and returns the serialized payload.
func (op *Operation) Success(payload map[string]interface{}) (string, error) {
	result := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		result[k] = v
	}
	result["request_id"] = op.requestID

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshaling tool payload: %w", err)
	}

	attrs := op.attrs()
	attrs = append(attrs,
		slog.Float64("duration_ms", op.elapsedMS()),
		slog.Int("response_bytes", len(data)),
	)
	logging.InfoAttrs(subsystem, "tool_success", attrs...)
	op.completed = true
	return string(data), nil
}

// Fail logs tool_error with the classified code and returns the JSON error
// envelope for the caller. Unanticipated errors are logged at error level
// and masked in the envelope.
func (op *Operation) Fail(err error) string {
	code := toolerr.CodeOf(err)

	attrs := op.attrs()
	attrs = append(attrs,
		slog.Float64("duration_ms", op.elapsedMS()),
		slog.String("error_type", code),
	)
	if code == toolerr.CodeInternal {
		logging.ErrorAttrs(subsystem, err, "tool_error", attrs...)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
		logging.WarnAttrs(subsystem, "tool_error", attrs...)
	}
	op.completed = true
	return toolerr.EnvelopeJSON(err, op.requestID)
}

func (op *Operation) elapsedMS() float64 {
	return float64(time.Since(op.start).Microseconds()) / 1000.0
}

func (op *Operation) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(op.fields)+2)
	attrs = append(attrs,
		slog.String("tool_name", op.tool),
		slog.String("request_id", op.requestID),
	)

	// Stable field order keeps log lines diffable.
	keys := make([]string, 0, len(op.fields))
	for k := range op.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, op.fields[k]))
	}
	return attrs
}
