package airflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
)

func basicInstance(host string) registry.Instance {
	return registry.Instance{
		Key:        "prod",
		Host:       host,
		APIVersion: "v1",
		VerifySSL:  true,
		Auth: registry.AuthConfig{
			Type:     registry.AuthTypeBasic,
			Username: "admin",
			Password: "s3cret",
		},
	}
}

func bearerInstance(host string) registry.Instance {
	return registry.Instance{
		Key:        "staging",
		Host:       host,
		APIVersion: "v1",
		VerifySSL:  true,
		Auth: registry.AuthConfig{
			Type:  registry.AuthTypeBearer,
			Token: "tok-123",
		},
	}
}

func TestClientBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "s3cret", pass)
		assert.Equal(t, "/api/v1/dags", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(DAGCollection{
			Dags:         []DAG{{DagID: "etl_daily"}},
			TotalEntries: 1,
		})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	got, err := c.ListDags(context.Background(), 25, 0)
	require.NoError(t, err)
	require.Len(t, got.Dags, 1)
	assert.Equal(t, "etl_daily", got.Dags[0].DagID)
	assert.Equal(t, 1, got.TotalEntries)
}

func TestClientBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(DAG{DagID: "etl_daily"})
	}))
	defer srv.Close()

	c, err := newClient(bearerInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	got, err := c.GetDag(context.Background(), "etl_daily")
	require.NoError(t, err)
	assert.Equal(t, "etl_daily", got.DagID)
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "DAG not found"}`))
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	_, err = c.GetDag(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeNotFound, toolerr.CodeOf(err))
}

func TestClientBadRequestMapsToInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	_, err = c.GetDag(context.Background(), "bad")
	assert.Equal(t, toolerr.CodeInvalidInput, toolerr.CodeOf(err))
}

func TestClientServerErrorMapsToInternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	_, err = c.ListDags(context.Background(), 10, 0)
	assert.Equal(t, toolerr.CodeInternal, toolerr.CodeOf(err))
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 50*time.Millisecond, false)
	require.NoError(t, err)

	_, err = c.ListDags(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Equal(t, toolerr.CodeTimeout, toolerr.CodeOf(err))
}

func TestClientTimeoutMessageOmitsHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 50*time.Millisecond, false)
	require.NoError(t, err)

	_, err = c.ListDags(context.Background(), 10, 0)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), srv.URL)
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestTriggerDagRunSendsEmptyConf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		conf, ok := body["conf"]
		require.True(t, ok, "conf must always be present")
		assert.Equal(t, map[string]interface{}{}, conf)
		json.NewEncoder(w).Encode(DAGRun{DagRunID: "manual__1", DagID: "etl_daily", State: "queued"})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	run, err := c.TriggerDagRun(context.Background(), "etl_daily", TriggerDagRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "queued", run.State)
}

func TestSetDagPaused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["is_paused"])
		paused := true
		json.NewEncoder(w).Encode(DAG{DagID: "etl_daily", IsPaused: &paused})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	got, err := c.SetDagPaused(context.Background(), "etl_daily", true)
	require.NoError(t, err)
	require.NotNil(t, got.IsPaused)
	assert.True(t, *got.IsPaused)
}

func TestGetTaskLogsUnwrapsJSONEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/dags/etl_daily/dagRuns/run1/taskInstances/extract/logs/2", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("full_content"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"content": "line one\nline two"})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	text, err := c.GetTaskLogs(context.Background(), "etl_daily", "run1", "extract", 2)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestGetTaskLogsPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("INFO - starting\nINFO - done\n"))
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	text, err := c.GetTaskLogs(context.Background(), "etl_daily", "run1", "extract", 1)
	require.NoError(t, err)
	assert.Equal(t, "INFO - starting\nINFO - done\n", text)
}

func TestClearTaskInstancesStripsExtendedFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "include_upstream")
		assert.NotContains(t, body, "include_downstream")
		assert.NotContains(t, body, "include_future")
		assert.NotContains(t, body, "include_past")
		json.NewEncoder(w).Encode(TaskInstanceReferenceCollection{})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)
	require.False(t, c.Capabilities().ExtendedClearParams)

	yes := true
	_, err = c.ClearTaskInstances(context.Background(), "etl_daily", ClearTaskInstancesRequest{
		DryRun:          true,
		IncludeUpstream: &yes,
		IncludePast:     &yes,
	})
	require.NoError(t, err)
}

func TestClearTaskInstancesKeepsExtendedFlagsWhenSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["include_upstream"])
		json.NewEncoder(w).Encode(TaskInstanceReferenceCollection{})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, true)
	require.NoError(t, err)

	yes := true
	_, err = c.ClearTaskInstances(context.Background(), "etl_daily", ClearTaskInstancesRequest{
		DryRun:          true,
		IncludeUpstream: &yes,
	})
	require.NoError(t, err)
}

func TestClearDagRunStripsExtendedFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/dags/etl_daily/dagRuns/run1/clear", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"dry_run": true}, body)
		json.NewEncoder(w).Encode(map[string]interface{}{"task_instances": []interface{}{}})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	yes := true
	out, err := c.ClearDagRun(context.Background(), "etl_daily", "run1", ClearDagRunRequest{
		DryRun:          true,
		IncludeSubdags:  &yes,
		ResetDagRuns:    &yes,
		IncludeUpstream: &yes,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "task_instances")
}

func TestListDagRunsOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-execution_date", r.URL.Query().Get("order_by"))
		assert.Equal(t, "failed", r.URL.Query().Get("state"))
		json.NewEncoder(w).Encode(DAGRunCollection{TotalEntries: 0})
	}))
	defer srv.Close()

	c, err := newClient(basicInstance(srv.URL), 5*time.Second, false)
	require.NoError(t, err)

	_, err = c.ListDagRuns(context.Background(), "etl_daily", ListDagRunsOptions{Limit: 10, States: []string{"failed"}})
	require.NoError(t, err)
}
