package buffer_test

import (
	"bytes"
	"testing"

	"github.com/sabouaram/ahttp/buffer"
)

func TestAppendAndView(t *testing.T) {
	r := buffer.New(8)
	if err := r.Append([]byte("abcd")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(r.View(), []byte("abcd")) {
		t.Fatalf("unexpected view: %q", r.View())
	}
	if r.Empty() {
		t.Fatalf("expected non-empty buffer")
	}
}

func TestAppendOverflow(t *testing.T) {
	r := buffer.New(4)
	if err := r.Append([]byte("abcd")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Append([]byte("e")); err != buffer.ErrWouldOverflow {
		t.Fatalf("expected ErrWouldOverflow, got %v", err)
	}
}

func TestConsumeFreesRoomViaCompact(t *testing.T) {
	r := buffer.New(4)
	if err := r.Append([]byte("abcd")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Consume(2)
	if err := r.Append([]byte("ef")); err != nil {
		t.Fatalf("expected room after consume+compact, got: %v", err)
	}
	if !bytes.Equal(r.View(), []byte("cdef")) {
		t.Fatalf("unexpected view after compact: %q", r.View())
	}
}

func TestFullSignal(t *testing.T) {
	r := buffer.New(2)
	if r.Full() {
		t.Fatalf("expected not full on empty buffer")
	}
	if err := r.Append([]byte("ab")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Full() {
		t.Fatalf("expected full at capacity")
	}
}

func TestClear(t *testing.T) {
	r := buffer.New(4)
	_ = r.Append([]byte("ab"))
	r.Clear()
	if !r.Empty() {
		t.Fatalf("expected empty buffer after Clear")
	}
	if r.Full() {
		t.Fatalf("expected not full after Clear")
	}
}
