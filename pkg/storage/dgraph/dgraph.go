// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package dgraph implements storage.Engine for Dgraph's HTTP and GraphQL
// endpoints.
package dgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudgraphdev/cloudgraph/internal/httpx"
	"github.com/cloudgraphdev/cloudgraph/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultHost is used when no host is configured.
const DefaultHost = "http://localhost:8080"

const (
	healthPath   = "/health?all"
	validatePath = "/admin/schema/validate"
	adminPath    = "/admin"
	alterPath    = "/alter"
	graphqlPath  = "/graphql"
)

const updateSchemaQuery = `mutation($schema: String!) {
  updateGQLSchema(input: { set: { schema: $schema } }) {
    gqlSchema {
      schema
    }
  }
}`

// Engine is a storage.Engine backed by a Dgraph instance.
type Engine struct {
	host   string
	client httpx.BasicClient
	log    *zap.SugaredLogger
	tasks  []storage.MutationTask
}

var _ storage.Engine = &Engine{}

// New returns an Engine for the Dgraph instance at host. A host without a
// scheme is assumed to be plain http.
func New(host string, client httpx.BasicClient, log *zap.SugaredLogger) (*Engine, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing dgraph host %q", host)
	}
	if u.Host == "" {
		return nil, errors.Errorf("dgraph host %q has no hostname", host)
	}
	return &Engine{
		host:   strings.TrimSuffix(u.String(), "/"),
		client: client,
		log:    log,
	}, nil
}

// Host returns the normalized base URL of the backend.
func (e *Engine) Host() string { return e.host }

// Tasks returns a copy of the queued, not yet executed tasks.
func (e *Engine) Tasks() []storage.MutationTask {
	return append([]storage.MutationTask(nil), e.tasks...)
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage    `json:"data,omitempty"`
	Errors []storage.GQLError `json:"errors,omitempty"`
}

// reply is a completed HTTP exchange with the backend.
type reply struct {
	status int
	body   []byte
}

func (r reply) ok() bool { return r.status >= 200 && r.status < 300 }

// decode parses the body as a GraphQL response. Bodies that are not JSON
// yield an empty response.
func (r reply) decode() gqlResponse {
	var resp gqlResponse
	if len(bytes.TrimSpace(r.body)) == 0 {
		return resp
	}
	if err := json.Unmarshal(r.body, &resp); err != nil {
		return gqlResponse{}
	}
	return resp
}

// post sends body to path. Only failures to complete the exchange are
// returned as errors; status handling is left to the caller.
func (e *Engine) post(ctx context.Context, op, path, contentType string, body []byte) (reply, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+path, r)
	if err != nil {
		return reply{}, &storage.TransportError{Op: op, Host: e.host, Err: errors.Wrap(err, "building request")}
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := e.client.Do(req)
	if err != nil {
		return reply{}, &storage.TransportError{Op: op, Host: e.host, Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, &storage.TransportError{Op: op, Host: e.host, Status: resp.StatusCode, Err: errors.Wrap(err, "reading response")}
	}
	return reply{status: resp.StatusCode, body: b}, nil
}

func (e *Engine) postJSON(ctx context.Context, op, path string, v any) (reply, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return reply{}, errors.Wrapf(err, "encoding %s request", op)
	}
	return e.post(ctx, op, path, "application/json", b)
}

func statusError(op, host string, r reply) error {
	msg := strings.TrimSpace(string(r.body))
	if msg == "" {
		msg = http.StatusText(r.status)
	}
	return &storage.TransportError{Op: op, Host: host, Status: r.status, Err: errors.New(msg)}
}

// HealthCheck probes the backend's health endpoint.
func (e *Engine) HealthCheck(ctx context.Context) bool {
	e.log.Debugf("running dgraph health check at %s", e.host)
	r, err := e.post(ctx, "health check", healthPath, "application/json", nil)
	if err == nil && !r.ok() {
		err = statusError("health check", e.host, r)
	}
	if err != nil {
		e.log.Warnf("dgraph at %s failed health check. Is dgraph running?", e.host)
		e.log.Debug(err)
		return false
	}
	e.log.Debug(string(r.body))
	return true
}

// ValidateSchema submits the combined schema to the dry-run endpoint.
func (e *Engine) ValidateSchema(ctx context.Context, schema []string, version string) error {
	caption := strings.Join(strings.Split(version, "-"), " ")
	e.log.Debugf("Validating schema for %s", caption)
	r, err := e.post(ctx, "validate schema", validatePath, "text/plain", []byte(Join(schema)))
	if err != nil {
		return err
	}
	if errs := r.decode().Errors; len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, ge := range errs {
			msgs = append(msgs, strings.ReplaceAll(ge.Message, "input:", "line "))
		}
		e.log.Error("Schema validation failed")
		e.log.Errorf("%d errors found in %s schema. Check the following lines in the schema.graphql file:\n%s", len(msgs), caption, strings.Join(msgs, "\n"))
		return &storage.SchemaValidationError{Version: caption, Messages: msgs}
	}
	if !r.ok() {
		return statusError("validate schema", e.host, r)
	}
	return nil
}

// SetSchema replaces everything at the backend with the given schema.
func (e *Engine) SetSchema(ctx context.Context, schemas []string) error {
	if err := e.alter(ctx, "drop all", `{"drop_all": true}`); err != nil {
		return err
	}
	req := gqlRequest{
		Query:     updateSchemaQuery,
		Variables: map[string]any{"schema": Join(schemas)},
	}
	r, err := e.postJSON(ctx, "set schema", adminPath, req)
	if err != nil {
		e.log.Error("There was an issue pushing the schema into the Dgraph db")
		e.log.Debug(err)
		e.processResult(req, nil, nil, "")
		return err
	}
	resp := r.decode()
	if !r.ok() {
		e.log.Error("There was an issue pushing the schema into the Dgraph db")
		e.processResult(req, resp.Data, resp.Errors, "")
		return statusError("set schema", e.host, r)
	}
	e.processResult(req, resp.Data, resp.Errors, "")
	if len(resp.Errors) > 0 {
		return &storage.MutationError{Service: "schema", Errors: resp.Errors}
	}
	return nil
}

// alter sends an operation to the /alter endpoint.
func (e *Engine) alter(ctx context.Context, op, body string) error {
	e.log.Debugf("running %s at %s", op, e.host)
	r, err := e.post(ctx, op, alterPath, "application/json", []byte(body))
	if err != nil {
		return err
	}
	if errs := r.decode().Errors; len(errs) > 0 {
		return &storage.TransportError{Op: op, Host: e.host, Status: r.status, Err: errs[0]}
	}
	if !r.ok() {
		return statusError(op, e.host, r)
	}
	return nil
}

// Push enqueues task for the next Run.
func (e *Engine) Push(task storage.MutationTask) {
	e.tasks = append(e.tasks, task)
}

// Run executes the queued tasks sequentially and drains the queue.
func (e *Engine) Run(ctx context.Context, dropData bool) (*storage.RunReport, error) {
	if dropData {
		if err := e.alter(ctx, "drop data", `{"drop_op": "DATA"}`); err != nil {
			return nil, errors.Wrap(err, "clearing existing data")
		}
	}
	tasks := e.tasks
	e.tasks = nil
	report := &storage.RunReport{}
	for _, task := range tasks {
		report.Executed++
		if err := e.execute(ctx, task); err != nil {
			report.Errors = append(report.Errors, err)
		}
	}
	return report, nil
}

func (e *Engine) execute(ctx context.Context, task storage.MutationTask) error {
	req := gqlRequest{
		Query:     task.Query,
		Variables: map[string]any{"input": task.Input},
	}
	e.log.Debugf("pushing %d %s entities", len(task.Input), task.Service)
	r, err := e.postJSON(ctx, "push "+task.Service, graphqlPath, req)
	if err != nil {
		e.log.Error("There was an issue pushing data into the Dgraph db")
		e.log.Debug(err)
		e.processResult(req, nil, nil, task.Service)
		return &storage.MutationError{Service: task.Service, Err: err}
	}
	resp := r.decode()
	e.processResult(req, resp.Data, resp.Errors, task.Service)
	if len(resp.Errors) > 0 {
		return &storage.MutationError{Service: task.Service, Errors: resp.Errors}
	}
	if !r.ok() {
		e.log.Error("There was an issue pushing data into the Dgraph db")
		return &storage.MutationError{Service: task.Service, Err: statusError("push "+task.Service, e.host, r)}
	}
	return nil
}

// processResult surfaces backend-reported GraphQL errors next to the request
// that caused them. It only logs; callers decide whether the operation failed.
func (e *Engine) processResult(req gqlRequest, data json.RawMessage, errs []storage.GQLError, service string) {
	log := e.log
	if service != "" {
		log = log.With("service", service)
	}
	if len(errs) == 0 {
		if len(data) > 0 {
			log.Debugf("response: %s", data)
		}
		return
	}
	for _, ge := range errs {
		log.Errorw("graphql error", "message", ge.Message, "path", ge.Path, "query", req.Query)
	}
	if vars, err := json.Marshal(req.Variables); err == nil {
		log.Debugf("offending variables: %s", vars)
	}
	if len(data) > 0 && string(data) != "null" {
		log.Debugf("partial response: %s", data)
	}
}

// Join concatenates schema fragments into the text submitted to the backend.
func Join(schema []string) string {
	return strings.Join(schema, "\n")
}
