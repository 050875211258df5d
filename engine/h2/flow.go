/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

// maxWindowSize is the largest legal flow-control window, per RFC 7540
// §6.9.1 ("2^31-1").
const maxWindowSize = 1<<31 - 1

// flowWindow tracks one side of one flow-controlled window (a connection's
// or a stream's, send or receive).
type flowWindow struct {
	size int32
}

func newFlowWindow(initial int32) flowWindow {
	return flowWindow{size: initial}
}

// add applies a WINDOW_UPDATE increment (or a SETTINGS_INITIAL_WINDOW_SIZE
// delta), reporting false if it would overflow the legal maximum.
func (w *flowWindow) add(delta int32) bool {
	next := int64(w.size) + int64(delta)
	if next > maxWindowSize {
		return false
	}
	w.size = int32(next)
	return true
}

// consume reports whether n bytes may be sent/received against the window,
// and if so deducts them.
func (w *flowWindow) consume(n int32) bool {
	if n > w.size {
		return false
	}
	w.size -= n
	return true
}

// available returns the number of bytes currently permitted, never negative.
func (w *flowWindow) available() int32 {
	if w.size < 0 {
		return 0
	}
	return w.size
}
