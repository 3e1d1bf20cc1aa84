// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides a simpler http.Client abstraction and decorators.
package httpx

import (
	"net/http"
	"time"
)

// BasicClient is a simpler http.Client that only requires a Do method.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// DefaultTimeout bounds a single request made by NewClient clients.
const DefaultTimeout = 2 * time.Minute

// NewClient returns a client whose requests fail after timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// WithUserAgent is a basic HTTP client that adds a User-Agent header.
type WithUserAgent struct {
	BasicClient
	UserAgent string
}

var _ BasicClient = &WithUserAgent{}

// Do adds the User-Agent header and sends the request.
func (c *WithUserAgent) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	return c.BasicClient.Do(req)
}

// WithHeaders adds a fixed set of headers to every request, leaving headers
// already set on the request untouched.
type WithHeaders struct {
	BasicClient
	Header http.Header
}

var _ BasicClient = &WithHeaders{}

// Do adds the missing headers and sends the request.
func (c *WithHeaders) Do(req *http.Request) (*http.Response, error) {
	for k, vs := range c.Header {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.BasicClient.Do(req)
}
