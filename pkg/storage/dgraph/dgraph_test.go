// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package dgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudgraphdev/cloudgraph/internal/httpx/httpxtest"
	"github.com/cloudgraphdev/cloudgraph/internal/logx"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/cloudgraphdev/cloudgraph/pkg/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testHost = "http://dgraph.test:8080"

func newEngine(t *testing.T, calls []httpxtest.Call) (*Engine, *httpxtest.MockClient) {
	t.Helper()
	client := &httpxtest.MockClient{
		Calls:        calls,
		URLValidator: httpxtest.NewURLValidator(t),
	}
	e, err := New(testHost, client, logx.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, client
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name    string
		host    string
		want    string
		wantErr bool
	}{
		{name: "default", host: "", want: "http://localhost:8080"},
		{name: "trailing slash", host: "http://dgraph:8080/", want: "http://dgraph:8080"},
		{name: "no scheme", host: "dgraph:9090", want: "http://dgraph:9090"},
		{name: "https", host: "https://cloud.dgraph.io", want: "https://cloud.dgraph.io"},
		{name: "no hostname", host: "http://", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, err := New(tc.host, http.DefaultClient, logx.Nop())
			if (err != nil) != tc.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && e.Host() != tc.want {
				t.Errorf("Host() = %q, want %q", e.Host(), tc.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	for _, tc := range []struct {
		name string
		call httpxtest.Call
		want bool
	}{
		{
			name: "healthy",
			call: httpxtest.Call{Method: "POST", URL: testHost + "/health?all", Response: httpxtest.Respond(http.StatusOK, `[{"status":"healthy"}]`)},
			want: true,
		},
		{
			name: "unhealthy status",
			call: httpxtest.Call{Method: "POST", URL: testHost + "/health?all", Response: httpxtest.Respond(http.StatusServiceUnavailable, "")},
			want: false,
		},
		{
			name: "transport failure",
			call: httpxtest.Call{Method: "POST", URL: testHost + "/health?all", Error: errors.New("connection refused")},
			want: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, client := newEngine(t, []httpxtest.Call{tc.call})
			if got := e.HealthCheck(context.Background()); got != tc.want {
				t.Errorf("HealthCheck() = %v, want %v", got, tc.want)
			}
			if client.CallCount() != 1 {
				t.Errorf("CallCount() = %d, want 1", client.CallCount())
			}
		})
	}
}

func TestValidateSchema(t *testing.T) {
	schema := []string{"type A { id: String! @id }", "type B { id: String! @id }"}
	for _, tc := range []struct {
		name      string
		call      httpxtest.Call
		wantErr   bool
		wantLines []string
	}{
		{
			name: "valid",
			call: httpxtest.Call{Method: "POST", URL: testHost + "/admin/schema/validate", Response: httpxtest.Respond(http.StatusOK, `{"data":{"code":"Success"}}`)},
		},
		{
			name:      "rejected with line markers",
			call:      httpxtest.Call{Method: "POST", URL: testHost + "/admin/schema/validate", Response: httpxtest.Respond(http.StatusBadRequest, `{"errors":[{"message":"input:3 Type X undefined"},{"message":"input:7: Unexpected Name"}]}`)},
			wantErr:   true,
			wantLines: []string{"line 3 Type X undefined", "line 7: Unexpected Name"},
		},
		{
			name:      "errors in successful response",
			call:      httpxtest.Call{Method: "POST", URL: testHost + "/admin/schema/validate", Response: httpxtest.Respond(http.StatusOK, `{"errors":[{"message":"input:1 bad"}]}`)},
			wantErr:   true,
			wantLines: []string{"line 1 bad"},
		},
		{
			name:    "status without errors",
			call:    httpxtest.Call{Method: "POST", URL: testHost + "/admin/schema/validate", Response: httpxtest.Respond(http.StatusInternalServerError, "boom")},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, client := newEngine(t, []httpxtest.Call{tc.call})
			err := e.ValidateSchema(context.Background(), schema, "aws-v1")
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateSchema() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got := client.Requests[0].Header.Get("Content-Type"); got != "text/plain" {
				t.Errorf("Content-Type = %q, want text/plain", got)
			}
			if diff := cmp.Diff(Join(schema), client.Bodies[0]); diff != "" {
				t.Errorf("request body mismatch (-want +got):\n%s", diff)
			}
			if tc.wantLines == nil {
				return
			}
			var sve *storage.SchemaValidationError
			if !errors.As(err, &sve) {
				t.Fatalf("ValidateSchema() error = %T, want *storage.SchemaValidationError", err)
			}
			if diff := cmp.Diff(tc.wantLines, sve.Messages); diff != "" {
				t.Errorf("Messages mismatch (-want +got):\n%s", diff)
			}
			if sve.Version != "aws v1" {
				t.Errorf("Version = %q, want %q", sve.Version, "aws v1")
			}
		})
	}
}

func TestValidateSchemaLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := &httpxtest.MockClient{
		Calls:             []httpxtest.Call{{Response: httpxtest.Respond(http.StatusBadRequest, `{"errors":[{"message":"input:3 Type X undefined"}]}`)}},
		SkipURLValidation: true,
	}
	e, err := New(testHost, client, zap.New(core).Sugar())
	if err != nil {
		t.Fatal(err)
	}
	err = e.ValidateSchema(context.Background(), []string{"type X"}, "v1")
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("ValidateSchema() error = %v, want mention of line 3", err)
	}
	summary := logs.FilterMessageSnippet("1 errors found in v1 schema").All()
	if len(summary) != 1 {
		t.Fatalf("got %d summary log entries, want 1", len(summary))
	}
	if !strings.Contains(summary[0].Message, "line 3 Type X undefined") {
		t.Errorf("summary %q does not list the error", summary[0].Message)
	}
}

func TestValidateSchemaTransportFailure(t *testing.T) {
	e, _ := newEngine(t, []httpxtest.Call{
		{Method: "POST", URL: testHost + "/admin/schema/validate", Error: errors.New("dial tcp: connection refused")},
	})
	err := e.ValidateSchema(context.Background(), []string{"type A"}, "v1")
	var te *storage.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("ValidateSchema() error = %v, want *storage.TransportError", err)
	}
}

func TestSetSchema(t *testing.T) {
	schema := []string{"type A { id: String! @id }"}
	t.Run("success", func(t *testing.T) {
		e, client := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Response: httpxtest.Respond(http.StatusOK, `{"data":{"code":"Success"}}`)},
			{Method: "POST", URL: testHost + "/admin", Response: httpxtest.Respond(http.StatusOK, `{"data":{"updateGQLSchema":{"gqlSchema":{"schema":"type A"}}}}`)},
		})
		if err := e.SetSchema(context.Background(), schema); err != nil {
			t.Fatalf("SetSchema() error = %v", err)
		}
		var paths []string
		for _, r := range client.Requests {
			paths = append(paths, r.URL.Path)
		}
		if diff := cmp.Diff([]string{"/alter", "/admin"}, paths); diff != "" {
			t.Errorf("request paths mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(`{"drop_all": true}`, client.Bodies[0]); diff != "" {
			t.Errorf("drop body mismatch (-want +got):\n%s", diff)
		}
		var got gqlRequest
		if err := json.Unmarshal([]byte(client.Bodies[1]), &got); err != nil {
			t.Fatalf("decoding schema request: %v", err)
		}
		want := gqlRequest{Query: updateSchemaQuery, Variables: map[string]any{"schema": Join(schema)}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("schema request mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("graphql errors", func(t *testing.T) {
		e, _ := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Response: httpxtest.Respond(http.StatusOK, `{"data":{"code":"Success"}}`)},
			{Method: "POST", URL: testHost + "/admin", Response: httpxtest.Respond(http.StatusOK, `{"errors":[{"message":"resolving updateGQLSchema failed"}]}`)},
		})
		err := e.SetSchema(context.Background(), schema)
		var me *storage.MutationError
		if !errors.As(err, &me) {
			t.Fatalf("SetSchema() error = %v, want *storage.MutationError", err)
		}
	})
	t.Run("drop failure stops before schema", func(t *testing.T) {
		e, client := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Error: errors.New("connection reset")},
		})
		if err := e.SetSchema(context.Background(), schema); err == nil {
			t.Fatal("SetSchema() error = nil, want error")
		}
		if client.CallCount() != 1 {
			t.Errorf("CallCount() = %d, want 1", client.CallCount())
		}
	})
	t.Run("transport failure", func(t *testing.T) {
		e, _ := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Response: httpxtest.Respond(http.StatusOK, `{}`)},
			{Method: "POST", URL: testHost + "/admin", Error: errors.New("connection reset")},
		})
		var te *storage.TransportError
		if err := e.SetSchema(context.Background(), schema); !errors.As(err, &te) {
			t.Fatalf("SetSchema() error = %v, want *storage.TransportError", err)
		}
	})
}

func task(service string, ids ...string) storage.MutationTask {
	var input []graph.ConnectedEntity
	for _, id := range ids {
		input = append(input, graph.ConnectedEntity{"id": id})
	}
	return storage.MutationTask{Query: "mutation($input: [Add" + service + "Input!]!) { add }", Service: service, Input: input}
}

func TestPushIsDeferred(t *testing.T) {
	// No calls are configured, so any request would panic.
	e, _ := newEngine(t, nil)
	e.Push(task("ec2", "i-1"))
	e.Push(task("vpc", "vpc-1"))
	got := e.Tasks()
	if len(got) != 2 || got[0].Service != "ec2" || got[1].Service != "vpc" {
		t.Errorf("Tasks() = %+v, want ec2 then vpc", got)
	}
}

func TestRun(t *testing.T) {
	ok := func() httpxtest.Call {
		return httpxtest.Call{Method: "POST", URL: testHost + "/graphql", Response: httpxtest.Respond(http.StatusOK, `{"data":{"add":{"numUids":1}}}`)}
	}
	t.Run("continues past failures", func(t *testing.T) {
		e, client := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Response: httpxtest.Respond(http.StatusOK, `{"data":{"code":"Success"}}`)},
			ok(),
			{Method: "POST", URL: testHost + "/graphql", Response: httpxtest.Respond(http.StatusOK, `{"errors":[{"message":"couldn't rewrite mutation"}]}`)},
			{Method: "POST", URL: testHost + "/graphql", Error: errors.New("connection reset")},
			ok(),
			{Method: "POST", URL: testHost + "/graphql", Response: httpxtest.Respond(http.StatusBadGateway, "bad gateway")},
		})
		for _, s := range []string{"a", "b", "c", "d", "e"} {
			e.Push(task(s, s+"-1"))
		}
		report, err := e.Run(context.Background(), true)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if client.CallCount() != 6 {
			t.Errorf("CallCount() = %d, want 6", client.CallCount())
		}
		if report.Executed != 5 || report.Failed() != 3 || report.Succeeded() != 2 {
			t.Errorf("report = executed %d failed %d, want 5 and 3", report.Executed, report.Failed())
		}
		var services []string
		for _, err := range report.Errors {
			var me *storage.MutationError
			if !errors.As(err, &me) {
				t.Fatalf("error %v is not a *storage.MutationError", err)
			}
			services = append(services, me.Service)
		}
		if diff := cmp.Diff([]string{"b", "c", "e"}, services); diff != "" {
			t.Errorf("failed services mismatch (-want +got):\n%s", diff)
		}
		if got := client.Requests[0].URL.Path; got != "/alter" {
			t.Errorf("drop request path = %q, want /alter", got)
		}
		if diff := cmp.Diff(`{"drop_op": "DATA"}`, client.Bodies[0]); diff != "" {
			t.Errorf("drop body mismatch (-want +got):\n%s", diff)
		}
		if len(e.Tasks()) != 0 {
			t.Errorf("queue not drained: %d tasks left", len(e.Tasks()))
		}
	})
	t.Run("executes in queue order without drop", func(t *testing.T) {
		e, client := newEngine(t, []httpxtest.Call{ok(), ok()})
		e.Push(task("first", "f-1", "f-2"))
		e.Push(task("second", "s-1"))
		report, err := e.Run(context.Background(), false)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Failed() != 0 {
			t.Errorf("Failed() = %d, want 0", report.Failed())
		}
		var got []gqlRequest
		for _, b := range client.Bodies {
			var r gqlRequest
			if err := json.Unmarshal([]byte(b), &r); err != nil {
				t.Fatal(err)
			}
			got = append(got, r)
		}
		want := []gqlRequest{
			{Query: task("first").Query, Variables: map[string]any{"input": []any{map[string]any{"id": "f-1"}, map[string]any{"id": "f-2"}}}},
			{Query: task("second").Query, Variables: map[string]any{"input": []any{map[string]any{"id": "s-1"}}}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("requests mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("drop failure aborts", func(t *testing.T) {
		e, client := newEngine(t, []httpxtest.Call{
			{Method: "POST", URL: testHost + "/alter", Response: httpxtest.Respond(http.StatusOK, `{"errors":[{"message":"not allowed"}]}`)},
		})
		e.Push(task("a", "a-1"))
		if _, err := e.Run(context.Background(), true); err == nil {
			t.Fatal("Run() error = nil, want error")
		}
		if client.CallCount() != 1 {
			t.Errorf("CallCount() = %d, want 1", client.CallCount())
		}
	})
}
