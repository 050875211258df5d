package message_test

import (
	"strings"
	"testing"

	"github.com/sabouaram/ahttp/message"
)

func TestParseURIDefaultsPort(t *testing.T) {
	u, err := message.ParseURI("https://example.com/foo?bar=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Port != 443 {
		t.Fatalf("expected default port 443, got %d", u.Port)
	}
	if u.PathWithQuery() != "/foo?bar=1" {
		t.Fatalf("unexpected path+query: %q", u.PathWithQuery())
	}
}

func TestHeadersSetOverridesKeepsOrder(t *testing.T) {
	h := message.NewHeaders()
	h.Set("Content-Type", "text/plain")
	h.Set("Accept", "*/*")
	h.Set("content-type", "application/json")

	if h.Get("Content-Type") != "application/json" {
		t.Fatalf("expected override to apply, got %q", h.Get("Content-Type"))
	}

	var order []string
	h.Range(func(name, value string) { order = append(order, name) })
	if strings.Join(order, ",") != "content-type,accept" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestBytesBodyLenAndDrain(t *testing.T) {
	b := message.NewBytesBody([]byte("hello"))
	n, ok := b.Len()
	if !ok || n != 5 {
		t.Fatalf("expected known length 5, got %d ok=%v", n, ok)
	}
	chunk, err := b.Next()
	if err != nil || string(chunk) != "hello" {
		t.Fatalf("unexpected chunk %q err=%v", chunk, err)
	}
	if _, err := b.Next(); err == nil {
		t.Fatalf("expected EOF on second Next")
	}
}

func TestBodySinkSpillsPastThreshold(t *testing.T) {
	s := message.NewBodySink(4)
	if _, err := s.Write([]byte("abcdefgh")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	if s.Size() != 8 {
		t.Fatalf("expected size 8, got %d", s.Size())
	}

	r, err := s.Reader()
	if err != nil {
		t.Fatalf("reader error: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 8)
	n, _ := r.Read(buf)
	if string(buf[:n]) != "abcdefgh" {
		t.Fatalf("unexpected body contents: %q", buf[:n])
	}
}
