package airflow

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
	"airflow-mcp/pkg/logging"
)

const (
	// maxErrorBody bounds how much of an error response body is read for
	// the envelope detail.
	maxErrorBody = 4096

	// maxLogBody bounds a raw log download. The processor trims further,
	// but a runaway endpoint must not exhaust memory here.
	maxLogBody = 256 << 20
)

// Client is a typed HTTP client for one Airflow deployment. It is safe for
// concurrent use and holds no mutable state beyond the underlying transport's
// connection pool.
type Client struct {
	instance registry.Instance
	base     *url.URL
	http     *http.Client
	caps     Capabilities
}

func newClient(inst registry.Instance, timeout time.Duration, extendedClear bool) (*Client, error) {
	base, err := url.Parse(inst.Host)
	if err != nil {
		return nil, toolerr.Newf(toolerr.CodeConfigError, "instance %q has an invalid host URL", inst.Key)
	}
	base = base.JoinPath("api", inst.APIVersion)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !inst.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logging.Warn("Airflow", "TLS verification disabled for instance %s", inst.Key)
	}

	var rt http.RoundTripper = transport
	if inst.Auth.Type == registry.AuthTypeBearer {
		logging.Warn("Airflow", "Bearer token auth is experimental for instance %s; prefer basic auth when possible", inst.Key)
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: inst.Auth.Token}),
			Base:   transport,
		}
	}

	return &Client{
		instance: inst,
		base:     base,
		http:     &http.Client{Transport: rt, Timeout: timeout},
		caps:     capabilitiesFor(inst.APIVersion, extendedClear),
	}, nil
}

// Instance returns the deployment this client talks to.
func (c *Client) Instance() registry.Instance { return c.instance }

// Capabilities returns the resolved feature set for this deployment.
func (c *Client) Capabilities() Capabilities { return c.caps }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, accept string) (*http.Response, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, toolerr.Newf(toolerr.CodeInternal, "encoding request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, toolerr.Newf(toolerr.CodeInternal, "building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	if c.instance.Auth.Type == registry.AuthTypeBasic {
		req.SetBasicAuth(c.instance.Auth.Username, c.instance.Auth.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logging.Warn("Airflow", "instance %s returned %d for %s %s", c.instance.Key, resp.StatusCode, method, path)
		return nil, toolerr.FromHTTPStatus(resp.StatusCode,
			fmt.Sprintf("Airflow API request failed with status %d", resp.StatusCode),
			string(detail))
	}
	return resp, nil
}

func (c *Client) transportError(err error) error {
	var uerr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &uerr) && uerr.Timeout()) {
		return toolerr.Newf(toolerr.CodeTimeout, "request to instance %s timed out", c.instance.Key)
	}
	if errors.Is(err, context.Canceled) {
		return toolerr.New(toolerr.CodeTimeout, "request canceled")
	}
	// The wrapped error may embed the target URL with userinfo stripped by
	// net/http already, but the message is kept generic regardless.
	logging.Error("Airflow", err, "request to instance %s failed", c.instance.Key)
	return toolerr.Newf(toolerr.CodeInternal, "request to instance %s failed", c.instance.Key)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp.Body, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.do(ctx, method, path, nil, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeJSON(resp.Body, out)
}

func decodeJSON(r io.Reader, out interface{}) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return toolerr.Newf(toolerr.CodeInternal, "decoding Airflow response: %v", err)
	}
	return nil
}

// ListDags fetches one page of DAGs.
func (c *Client) ListDags(ctx context.Context, limit, offset int) (*DAGCollection, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out DAGCollection
	if err := c.getJSON(ctx, "dags", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDag fetches a single DAG definition.
func (c *Client) GetDag(ctx context.Context, dagID string) (*DAG, error) {
	var out DAG
	if err := c.getJSON(ctx, "dags/"+url.PathEscape(dagID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDagPaused pauses or unpauses a DAG and returns its updated state.
func (c *Client) SetDagPaused(ctx context.Context, dagID string, paused bool) (*DAG, error) {
	var out DAG
	body := map[string]bool{"is_paused": paused}
	err := c.sendJSON(ctx, http.MethodPatch, "dags/"+url.PathEscape(dagID), body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerDagRun creates a new DAG run.
func (c *Client) TriggerDagRun(ctx context.Context, dagID string, req TriggerDagRunRequest) (*DAGRun, error) {
	if req.Conf == nil {
		// Airflow requires the conf key to be present even when empty.
		req.Conf = map[string]interface{}{}
	}
	var out DAGRun
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns"
	if err := c.sendJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDagRunsOptions narrows a dagRuns listing. OrderBy is the raw Airflow
// ordering token ("-execution_date" for newest first), empty means newest
// first.
type ListDagRunsOptions struct {
	Limit   int
	Offset  int
	States  []string
	OrderBy string
}

// ListDagRuns fetches one page of runs for a DAG.
func (c *Client) ListDagRuns(ctx context.Context, dagID string, opts ListDagRunsOptions) (*DAGRunCollection, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.OrderBy == "" {
		opts.OrderBy = "-execution_date"
	}
	q.Set("order_by", opts.OrderBy)
	for _, state := range opts.States {
		q.Add("state", state)
	}
	var out DAGRunCollection
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns"
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDagRun fetches a single DAG run.
func (c *Client) GetDagRun(ctx context.Context, dagID, runID string) (*DAGRun, error) {
	var out DAGRun
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(runID)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearDagRun clears a DAG run. With dry_run true Airflow reports which task
// instances would be affected without changing anything. The response shape
// differs between dry runs and real clears, so it is passed through untyped.
func (c *Client) ClearDagRun(ctx context.Context, dagID, runID string, req ClearDagRunRequest) (map[string]interface{}, error) {
	if !c.caps.ExtendedClearParams {
		req.IncludeSubdags = nil
		req.IncludeParentdag = nil
		req.IncludeUpstream = nil
		req.IncludeDownstream = nil
		req.ResetDagRuns = nil
	}
	var out map[string]interface{}
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(runID) + "/clear"
	if err := c.sendJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTaskInstancesOptions narrows a taskInstances listing.
type ListTaskInstancesOptions struct {
	Limit  int
	Offset int
	States []string
}

// ListTaskInstances fetches one page of task instances for a DAG run.
func (c *Client) ListTaskInstances(ctx context.Context, dagID, runID string, opts ListTaskInstancesOptions) (*TaskInstanceCollection, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("offset", strconv.Itoa(opts.Offset))
	for _, state := range opts.States {
		q.Add("state", state)
	}
	var out TaskInstanceCollection
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(runID) + "/taskInstances"
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTaskInstance fetches a single task instance.
func (c *Client) GetTaskInstance(ctx context.Context, dagID, runID, taskID string) (*TaskInstance, error) {
	var out TaskInstance
	path := "dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(runID) + "/taskInstances/" + url.PathEscape(taskID)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches the static task definition, which carries retry settings
// the task instance endpoint omits.
func (c *Client) GetTask(ctx context.Context, dagID, taskID string) (*Task, error) {
	var out Task
	path := "dags/" + url.PathEscape(dagID) + "/tasks/" + url.PathEscape(taskID)
	if err := c.getJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTaskLogs downloads the raw log text for one try of a task instance. The
// result may be plain text or Airflow's python-literal segment form; the log
// processor handles both.
func (c *Client) GetTaskLogs(ctx context.Context, dagID, runID, taskID string, tryNumber int) (string, error) {
	q := url.Values{}
	if c.caps.LogFullContent {
		q.Set("full_content", "true")
	}
	path := "dags/" + url.PathEscape(dagID) +
		"/dagRuns/" + url.PathEscape(runID) +
		"/taskInstances/" + url.PathEscape(taskID) +
		"/logs/" + strconv.Itoa(tryNumber)
	resp, err := c.do(ctx, http.MethodGet, path, q, nil, "text/plain")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
	if err != nil {
		return "", toolerr.Newf(toolerr.CodeInternal, "reading log body: %v", err)
	}
	// Some deployments wrap plain text in a JSON {"content": ...} envelope
	// regardless of the Accept header.
	if wrapped, ok := unwrapLogContent(raw); ok {
		return wrapped, nil
	}
	return string(raw), nil
}

func unwrapLogContent(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var envelope struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || envelope.Content == nil {
		return "", false
	}
	return *envelope.Content, true
}

// ClearTaskInstances requests a clear across a DAG. Extended flags are
// stripped when the deployment does not support them.
func (c *Client) ClearTaskInstances(ctx context.Context, dagID string, req ClearTaskInstancesRequest) (*TaskInstanceReferenceCollection, error) {
	if !c.caps.ExtendedClearParams {
		req.IncludeUpstream = nil
		req.IncludeDownstream = nil
		req.IncludeFuture = nil
		req.IncludePast = nil
	}
	var out TaskInstanceReferenceCollection
	path := "dags/" + url.PathEscape(dagID) + "/clearTaskInstances"
	if err := c.sendJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDatasetEvents fetches dataset events, optionally filtered by URI.
func (c *Client) ListDatasetEvents(ctx context.Context, uri string, limit int) (*DatasetEventCollection, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order_by", "-timestamp")
	if uri != "" {
		q.Set("dataset_uri", uri)
	}
	var out DatasetEventCollection
	if err := c.getJSON(ctx, "datasets/events", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
