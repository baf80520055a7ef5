// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

// DefaultHTTPTimeout bounds the single poll request when the config
// does not set one.
const DefaultHTTPTimeout = 30 * time.Second

// maxHTTPBody caps how much of a response body is attached to the log.
const maxHTTPBody = 64 * 1024

// HTTPConfig configures an HTTPBackend poll.
type HTTPConfig struct {
	// URL is the absolute endpoint to poll. Required.
	URL string

	// Method defaults to GET.
	Method string

	// Headers are attached verbatim to the request.
	Headers map[string]string

	// Body is sent as the request body when non-empty.
	Body string

	// Timeout bounds the request. Defaults to DefaultHTTPTimeout.
	Timeout time.Duration

	// Client overrides the HTTP client, used by tests.
	Client *http.Client
}

// HTTPBackend performs a single HTTP request and synthesizes exactly
// one log from the response.
//
// The log carries stage "http", action "poll", status "success" for a
// 2xx response and "error" otherwise, with data.statusCode and
// data.body populated. A transport-level failure becomes a log with
// status "error" and an attached error record; the stream then ends.
type HTTPBackend struct {
	cfg HTTPConfig

	mu      sync.Mutex
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHTTPBackend creates a single-request HTTP poll backend.
func NewHTTPBackend(cfg HTTPConfig) *HTTPBackend {
	return &HTTPBackend{cfg: cfg, stopCh: make(chan struct{})}
}

// Start issues the poll asynchronously and returns a stream that yields
// the single synthesized log and then closes.
func (b *HTTPBackend) Start(ctx context.Context) (<-chan datatypes.Log, error) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil, &ObservabilityError{Backend: "http", Err: ErrAlreadyStarted}
	}
	b.started = true
	b.mu.Unlock()

	if b.cfg.URL == "" {
		return nil, &ObservabilityError{Backend: "http", Err: errEmptyURL}
	}

	out := make(chan datatypes.Log, 1)
	go func() {
		defer close(out)
		l := b.poll(ctx)
		select {
		case out <- l:
		case <-b.stopCh:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// Stop cancels an in-flight poll. Idempotent; safe without Start.
func (b *HTTPBackend) Stop() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	return nil
}

func (b *HTTPBackend) poll(ctx context.Context) datatypes.Log {
	method := b.cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := b.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	l := datatypes.Log{
		Timestamp: started,
		Stage:     "http",
		Action:    "poll",
		Data:      map[string]any{"url": b.cfg.URL},
	}

	var body io.Reader
	if b.cfg.Body != "" {
		body = strings.NewReader(b.cfg.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.cfg.URL, body)
	if err != nil {
		l.Status = datatypes.StatusError
		l.Error = &datatypes.LogError{Tag: "http_request", Message: err.Error()}
		return l
	}
	for k, v := range b.cfg.Headers {
		req.Header.Set(k, v)
	}

	client := b.cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	l.DurationMs = time.Since(started).Milliseconds()
	if err != nil {
		l.Status = datatypes.StatusError
		l.Error = &datatypes.LogError{Tag: "http_transport", Message: err.Error()}
		return l
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody))
	l.Data["statusCode"] = resp.StatusCode
	l.Data["body"] = string(raw)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		l.Status = datatypes.StatusSuccess
	} else {
		l.Status = datatypes.StatusError
		l.Error = &datatypes.LogError{Tag: "http_status", Message: resp.Status}
	}
	return l
}
