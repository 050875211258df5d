/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package body_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/sabouaram/ahttp/body"
	"github.com/sabouaram/ahttp/message"
)

func TestJSONSetsContentTypeAndMarshals(t *testing.T) {
	enc, err := body.JSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc.ContentType != "application/json" {
		t.Fatalf("expected application/json, got %q", enc.ContentType)
	}

	chunk, err := enc.Body.Next()
	if err != nil {
		t.Fatalf("unexpected error reading body: %v", err)
	}
	if string(chunk) != `{"a":1}` {
		t.Fatalf("unexpected body: %s", chunk)
	}
}

func TestFormEncodesValues(t *testing.T) {
	enc := body.Form(url.Values{"q": {"go"}})
	chunk, err := enc.Body.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(chunk) != "q=go" {
		t.Fatalf("unexpected encoded form: %s", chunk)
	}
	if enc.ContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type: %q", enc.ContentType)
	}
}

func TestApplySetsRequestBodyAndHeader(t *testing.T) {
	u, err := message.ParseURI("http://example.com/")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	req := message.NewRequest("post", u, nil, message.RequestOptions{})

	enc := body.Text("hello")
	enc.Apply(req)

	if req.Body == nil {
		t.Fatalf("expected body to be set")
	}
	if req.Headers.Get("Content-Type") != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type: %q", req.Headers.Get("Content-Type"))
	}
}

func TestReaderWrapsArbitraryReader(t *testing.T) {
	enc := body.Reader(strings.NewReader("streamed"), "application/octet-stream", 0)
	n, ok := enc.Body.Len()
	if ok {
		t.Fatalf("expected an unknown length for a streaming body, got %d", n)
	}
}
