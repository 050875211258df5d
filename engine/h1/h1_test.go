package h1_test

import (
	"io"
	"testing"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/engine/h1"
	"github.com/sabouaram/ahttp/message"
)

func newGetRequest(t *testing.T) *message.Request {
	t.Helper()
	u, err := message.ParseURI("http://example.com/")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	return message.NewRequest("get", u, nil, message.RequestOptions{})
}

func TestSendAndWriteSerializesRequestLine(t *testing.T) {
	e := h1.New(false, 0)
	req := newGetRequest(t)
	if err := e.Send(req); err != nil {
		t.Fatalf("send error: %v", err)
	}

	buf := buffer.New(4096)
	if err := e.WriteReady(buf); err != nil {
		t.Fatalf("write ready error: %v", err)
	}

	out := string(buf.View())
	if out[:17] != "GET / HTTP/1.1\r\nH" {
		t.Fatalf("unexpected request head: %q", out[:17])
	}
	if e.Pending() != 1 {
		t.Fatalf("expected 1 pending (inflight), got %d", e.Pending())
	}
}

func TestReadReadyParsesLengthDelimitedResponse(t *testing.T) {
	e := h1.New(false, 0)
	req := newGetRequest(t)
	_ = e.Send(req)

	wbuf := buffer.New(4096)
	_ = e.WriteReady(wbuf)
	wbuf.Clear()

	rbuf := buffer.New(4096)
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	_ = rbuf.Append([]byte(raw))

	events, err := e.ReadReady(rbuf)
	if err != nil {
		t.Fatalf("read ready error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	resp := events[0].Response
	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}

	r, err := resp.Body.Reader()
	if err != nil {
		t.Fatalf("reader error: %v", err)
	}
	defer r.Close()
	body, _ := io.ReadAll(r)
	if string(body) != "hello" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestReadReadyParsesChunkedResponse(t *testing.T) {
	e := h1.New(false, 0)
	req := newGetRequest(t)
	_ = e.Send(req)

	wbuf := buffer.New(4096)
	_ = e.WriteReady(wbuf)

	rbuf := buffer.New(4096)
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	_ = rbuf.Append([]byte(raw))

	events, err := e.ReadReady(rbuf)
	if err != nil {
		t.Fatalf("read ready error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	r, _ := events[0].Response.Body.Reader()
	defer r.Close()
	body, _ := io.ReadAll(r)
	if string(body) != "hello" {
		t.Fatalf("unexpected chunked body: %q", body)
	}
}
