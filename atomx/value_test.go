package atomx_test

import (
	"testing"

	"github.com/sabouaram/ahttp/atomx"
)

func TestLoadReturnsDefaultBeforeStore(t *testing.T) {
	v := atomx.New(42)
	if got := v.Load(); got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
}

func TestStoreThenLoad(t *testing.T) {
	v := atomx.New("")
	v.Store("hello")
	if got := v.Load(); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestSwapReturnsPrevious(t *testing.T) {
	v := atomx.New(1)
	v.Store(2)
	old := v.Swap(3)
	if old != 2 {
		t.Fatalf("expected old value 2, got %d", old)
	}
	if got := v.Load(); got != 3 {
		t.Fatalf("expected new value 3, got %d", got)
	}
}

func TestCompareAndSwap(t *testing.T) {
	v := atomx.New(1)
	v.Store(1)
	if !v.CompareAndSwap(1, 2) {
		t.Fatalf("expected CompareAndSwap to succeed")
	}
	if got := v.Load(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if v.CompareAndSwap(1, 3) {
		t.Fatalf("expected CompareAndSwap to fail on stale old value")
	}
}
