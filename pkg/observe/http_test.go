// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatewright/gatewright/pkg/datatypes"
)

func TestHTTPBackend_SuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	logs := collectStream(t, NewHTTPBackend(HTTPConfig{URL: srv.URL}))
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want exactly 1", len(logs))
	}
	l := logs[0]
	if l.Stage != "http" {
		t.Errorf("stage = %q, want http", l.Stage)
	}
	if l.Status != datatypes.StatusSuccess {
		t.Errorf("status = %q, want success", l.Status)
	}
	if l.Data["statusCode"] != http.StatusOK {
		t.Errorf("statusCode = %v, want 200", l.Data["statusCode"])
	}
	if l.Data["body"] != `{"ok":true}` {
		t.Errorf("body = %v", l.Data["body"])
	}
}

func TestHTTPBackend_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logs := collectStream(t, NewHTTPBackend(HTTPConfig{URL: srv.URL}))
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want exactly 1", len(logs))
	}
	if logs[0].Status != datatypes.StatusError {
		t.Errorf("status = %q, want error", logs[0].Status)
	}
	if logs[0].Error == nil || logs[0].Error.Tag != "http_status" {
		t.Errorf("error = %+v, want http_status tag", logs[0].Error)
	}
}

func TestHTTPBackend_TransportFailure(t *testing.T) {
	logs := collectStream(t, NewHTTPBackend(HTTPConfig{URL: "http://127.0.0.1:1/unreachable"}))
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if logs[0].Status != datatypes.StatusError || logs[0].Error == nil {
		t.Errorf("transport failure mapped to %+v, want error log", logs[0])
	}
}

func TestHTTPBackend_RequestShape(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
	}))
	defer srv.Close()

	collectStream(t, NewHTTPBackend(HTTPConfig{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Headers: map[string]string{"X-Probe": "gatewright"},
		Body:    `{"ping":1}`,
	}))

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotHeader != "gatewright" {
		t.Errorf("header = %q", gotHeader)
	}
	if gotBody != `{"ping":1}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestHTTPBackend_EmptyURL(t *testing.T) {
	_, err := NewHTTPBackend(HTTPConfig{}).Start(context.Background())
	var obsErr *ObservabilityError
	if !errors.As(err, &obsErr) {
		t.Fatalf("Start = %v, want *ObservabilityError", err)
	}
}

func TestHTTPBackend_StartTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	b := NewHTTPBackend(HTTPConfig{URL: srv.URL})
	defer b.Stop() //nolint:errcheck
	if _, err := b.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if _, err := b.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}
