/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package h1 implements the HTTP/1.1 request/response state machine: one
// request in flight per connection by default, with optional pipelining
// that permanently disables itself the first time the peer's behavior
// can't be reconciled with pipelined order.
package h1

import (
	"errors"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
)

var (
	errMalformedStatusLine = errors.New("h1: malformed status line")
	errMalformedHeaderLine = errors.New("h1: malformed header line")
)

const (
	CodeWriteFailed = errs.MinPkgEngineH1 + iota + 1
	CodeParseFailed
	CodePipeliningDisabled
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgEngineH1) {
		panic("h1: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgEngineH1, func(code errs.CodeError) string {
		switch code {
		case CodeWriteFailed:
			return "h1: failed to serialize request"
		case CodeParseFailed:
			return "h1: malformed response"
		case CodePipeliningDisabled:
			return "h1: pipelining disabled after protocol violation"
		default:
			return errs.NullMessage
		}
	})
}

// inflightRequest pairs a sent Request with the parser state tracking its
// response.
type inflightRequest struct {
	req      *message.Request
	resp     *message.Response
	bodyMode bodyMode
	remain   int64 // for modeLength: bytes left to read
	chunk    chunkParser
}

// Engine implements channel.Engine for HTTP/1.1.
type Engine struct {
	pipeline         bool
	pipelineDisabled bool
	bodyThreshold    int64

	writeQueue []*pendingWrite
	inflight   []*inflightRequest

	readState readState
	recycle   bool
}

// New returns an Engine. pipeline enables optimistic pipelining; it is
// permanently disabled the first time the peer's responses can't be
// reconciled with pipelined order. bodyThreshold is the byte count past
// which a response body spills to disk (0 selects message.SpillThreshold).
func New(pipeline bool, bodyThreshold int64) *Engine {
	return &Engine{pipeline: pipeline, bodyThreshold: bodyThreshold}
}

var _ channel.Engine = (*Engine)(nil)

func (e *Engine) Send(req *message.Request) errs.Error {
	pw, err := serialize(req)
	if err != nil {
		return errs.New(CodeWriteFailed, "h1: failed to serialize request", err)
	}
	e.writeQueue = append(e.writeQueue, pw)
	return nil
}

// Pending reports requests sent-but-unanswered plus requests still queued
// to be written.
func (e *Engine) Pending() int {
	return len(e.inflight) + len(e.writeQueue)
}

func (e *Engine) RecyclePeer() bool {
	return e.recycle
}

// Drain empties the engine and returns every request it held, in the order
// they should be retried (oldest inflight first, then queued).
func (e *Engine) Drain() []*message.Request {
	out := make([]*message.Request, 0, e.Pending())
	for _, ir := range e.inflight {
		out = append(out, ir.req)
	}
	for _, pw := range e.writeQueue {
		out = append(out, pw.req)
	}
	e.inflight = nil
	e.writeQueue = nil
	e.readState = readState{}
	return out
}

// allowedToWriteNext reports whether a new request may begin writing given
// the current inflight count and pipelining policy.
func (e *Engine) allowedToWriteNext() bool {
	if len(e.inflight) == 0 {
		return true
	}
	return e.pipeline && !e.pipelineDisabled
}

func (e *Engine) WriteReady(buf *buffer.Ring) errs.Error {
	for len(e.writeQueue) > 0 {
		if !e.allowedToWriteNext() {
			return nil
		}

		pw := e.writeQueue[0]

		room := buf.Cap() - buf.Len()
		if room <= 0 {
			return nil
		}

		remaining := pw.bytes[pw.off:]
		take := remaining
		if len(take) > room {
			take = take[:room]
		}
		if err := buf.Append(take); err != nil {
			return nil
		}
		pw.off += len(take)

		if pw.off < len(pw.bytes) {
			return nil
		}

		e.writeQueue = e.writeQueue[1:]
		e.inflight = append(e.inflight, &inflightRequest{req: pw.req})
	}
	return nil
}
