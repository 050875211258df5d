/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package message

import (
	"time"

	"github.com/sabouaram/ahttp/durationx"
)

// RequestState is where a Request sits in the send/receive lifecycle.
type RequestState uint8

const (
	StateIdle RequestState = iota
	StateHeaders
	StateBody
	StateDone
	StateExpects
)

// RequestOptions carries per-request knobs layered over session defaults.
type RequestOptions struct {
	Timeout         durationx.Duration
	ExpectContinue  bool
	DisablePipeline bool
}

// Request is immutable after creation except for its body-writer handle and
// State. Verb is always lowercase ("get", "post", ...).
type Request struct {
	Verb    string
	URI     *URI
	Headers *Headers
	Body    Body
	Options RequestOptions

	State    RequestState
	Deadline time.Time
}

// NewRequest builds a Request with an initialized Headers map and Host set
// from uri.
func NewRequest(verb string, uri *URI, body Body, opts RequestOptions) *Request {
	r := &Request{
		Verb:    verb,
		URI:     uri,
		Headers: NewHeaders(),
		Body:    body,
		Options: opts,
		State:   StateIdle,
	}
	r.Headers.Set("Host", uri.Host)
	return r
}

// HasBody reports whether the request carries a non-nil body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}
