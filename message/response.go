/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package message

import (
	"io"
	"os"
	"time"
)

// SpillThreshold is the default body size past which BodySink spills to a
// temp file instead of growing an in-memory buffer.
const SpillThreshold = 1 << 20 // 1 MiB

// BodySink accumulates response body bytes, spilling to a temp file once
// the configured threshold is exceeded.
type BodySink struct {
	threshold int64
	mem       []byte
	file      *os.File
	size      int64
	complete  bool
}

// NewBodySink returns a sink that spills to disk past threshold bytes (0
// selects SpillThreshold).
func NewBodySink(threshold int64) *BodySink {
	if threshold <= 0 {
		threshold = SpillThreshold
	}
	return &BodySink{threshold: threshold}
}

// Write appends p to the sink, same contract as io.Writer.
func (s *BodySink) Write(p []byte) (int, error) {
	if s.file == nil && s.size+int64(len(p)) > s.threshold {
		f, err := os.CreateTemp("", "ahttp-body-*")
		if err != nil {
			return 0, err
		}
		if _, err := f.Write(s.mem); err != nil {
			return 0, err
		}
		s.file = f
		s.mem = nil
	}

	if s.file != nil {
		n, err := s.file.Write(p)
		s.size += int64(n)
		return n, err
	}

	s.mem = append(s.mem, p...)
	s.size += int64(len(p))
	return len(p), nil
}

// Size returns the number of bytes written so far.
func (s *BodySink) Size() int64 {
	return s.size
}

// MarkComplete flags that the engine has signaled end-of-stream.
func (s *BodySink) MarkComplete() {
	s.complete = true
}

// Complete reports whether end-of-stream has been signaled.
func (s *BodySink) Complete() bool {
	return s.complete
}

// Reader returns an io.ReadCloser over everything written so far. Callers
// must not call Reader concurrently with Write.
func (s *BodySink) Reader() (io.ReadCloser, error) {
	if s.file != nil {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return s.file, nil
	}
	return io.NopCloser(&byteReader{b: s.mem}), nil
}

type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}

// Response is the decoded answer to a Request.
type Response struct {
	Status  int
	Version string // "1.1" or "2.0"
	Headers *Headers
	Body    *BodySink
	Trailer *Headers
	Error   *ErrorResponse

	start time.Time
	end   time.Time
}

// NewResponse returns an empty Response stamped with the current time as
// its start, used later by Elapsed. threshold is passed straight through to
// NewBodySink (0 selects SpillThreshold).
func NewResponse(threshold int64) *Response {
	return &Response{
		Headers: NewHeaders(),
		Body:    NewBodySink(threshold),
		start:   time.Now(),
	}
}

// MarkDone stamps the completion time; call once the engine signals
// end-of-stream.
func (r *Response) MarkDone() {
	r.end = time.Now()
	r.Body.MarkComplete()
}

// Elapsed reports the time between the Response's creation and MarkDone. It
// returns 0 if the response is not yet complete.
func (r *Response) Elapsed() time.Duration {
	if r.end.IsZero() {
		return 0
	}
	return r.end.Sub(r.start)
}

// Complete reports whether the engine has signaled end-of-stream.
func (r *Response) Complete() bool {
	return r.Body.Complete()
}
