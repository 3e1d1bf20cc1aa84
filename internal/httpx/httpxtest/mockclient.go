// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpxtest provides an httpx.BasicClient that replays scripted
// responses for tests.
package httpxtest

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Call is one expected request and the response returned for it.
type Call struct {
	Method   string
	URL      string
	Response *http.Response
	Error    error
}

// MockClient replays Calls in order and records every request it receives.
// Exactly one of URLValidator and SkipURLValidation must be set.
type MockClient struct {
	Calls             []Call
	URLValidator      func(expected, actual string)
	SkipURLValidation bool
	// Requests holds the requests received so far, with Bodies holding their
	// drained request bodies at the same index.
	Requests []*http.Request
	Bodies   []string
}

// Do records req and returns the next scripted response.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	if (m.URLValidator == nil) != m.SkipURLValidation {
		panic("MockClient needs exactly one of URLValidator and SkipURLValidation")
	}
	n := len(m.Requests)
	if n >= len(m.Calls) {
		panic(fmt.Sprintf("unexpected request #%d: %s %s", n+1, req.Method, req.URL))
	}
	call := m.Calls[n]
	m.Requests = append(m.Requests, req)
	m.Bodies = append(m.Bodies, drain(req))
	if m.URLValidator != nil {
		want, got := call.URL, req.URL.String()
		if call.Method != "" {
			want, got = call.Method+" "+want, req.Method+" "+got
		}
		m.URLValidator(want, got)
	}
	return call.Response, call.Error
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	return len(m.Requests)
}

func drain(req *http.Request) string {
	if req.Body == nil {
		return ""
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// NewURLValidator fails t when a request does not match its expected call.
func NewURLValidator(t *testing.T) func(string, string) {
	return func(expected, actual string) {
		t.Helper()
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Fatalf("request mismatch (-want +got):\n%s", diff)
		}
	}
}
