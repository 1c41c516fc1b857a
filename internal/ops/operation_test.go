package ops

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"airflow-mcp/internal/toolerr"
	"airflow-mcp/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Init(logging.LevelDebug, &buf, true)
	t.Cleanup(func() {
		logging.Init(logging.LevelInfo, &buf, false)
	})
	return &buf
}

func logLines(buf *bytes.Buffer) []map[string]interface{} {
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(line), &record); err == nil {
			out = append(out, record)
		}
	}
	return out
}

func TestSuccessInjectsRequestID(t *testing.T) {
	buf := captureLogs(t)

	op := Begin("airflow_list_dags")
	op.Set("instance", "prod")

	payload, err := op.Success(map[string]interface{}{"count": 3})
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &result))
	assert.Equal(t, op.RequestID(), result["request_id"])
	assert.Equal(t, float64(3), result["count"])

	lines := logLines(buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "tool_start", lines[0]["msg"])
	assert.Equal(t, "tool_success", lines[1]["msg"])
	assert.Equal(t, op.RequestID(), lines[1]["request_id"])
	assert.Equal(t, "prod", lines[1]["instance"])
	assert.NotZero(t, lines[1]["response_bytes"])
}

func TestFailReturnsEnvelopeWithSameRequestID(t *testing.T) {
	buf := captureLogs(t)

	op := Begin("airflow_get_dag")
	envelope := op.Fail(toolerr.New(toolerr.CodeNotFound, "Unknown instance 'x'"))

	var env toolerr.Envelope
	require.NoError(t, json.Unmarshal([]byte(envelope), &env))
	assert.Equal(t, toolerr.CodeNotFound, env.Code)
	assert.Equal(t, op.RequestID(), env.RequestID)

	lines := logLines(buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "tool_error", lines[1]["msg"])
	assert.Equal(t, toolerr.CodeNotFound, lines[1]["error_type"])
	// The id in the log matches the id in the caller-visible envelope.
	assert.Equal(t, env.RequestID, lines[1]["request_id"])
}

func TestFailMasksUnexpectedErrors(t *testing.T) {
	captureLogs(t)

	op := Begin("airflow_trigger_dag")
	envelope := op.Fail(assert.AnError)

	var env toolerr.Envelope
	require.NoError(t, json.Unmarshal([]byte(envelope), &env))
	assert.Equal(t, toolerr.CodeInternal, env.Code)
	assert.Equal(t, toolerr.UnexpectedMessage, env.Message)
}

func TestRequestIDsAreUnique(t *testing.T) {
	captureLogs(t)

	a := Begin("airflow_list_instances")
	b := Begin("airflow_list_instances")
	assert.NotEqual(t, a.RequestID(), b.RequestID())
	assert.NotContains(t, a.RequestID(), "-")
}
