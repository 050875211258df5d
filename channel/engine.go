/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package channel

import (
	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
)

// EventKind classifies an Event emitted by an Engine while draining the read
// buffer.
type EventKind uint8

const (
	// EventResponse means Request's Response is fully populated and done.
	EventResponse EventKind = iota
	// EventAltSvc surfaces an HTTP/2 ALTSVC frame; observable only.
	EventAltSvc
	// EventPushPromise surfaces an HTTP/2 PUSH_PROMISE frame; observable only.
	EventPushPromise
)

// Event is one unit of progress an Engine reports back to the Channel after
// consuming bytes from the read buffer.
type Event struct {
	Kind     EventKind
	Request  *message.Request
	Response *message.Response
	AltSvc   string
}

// Engine is the protocol state machine a Channel drives. Both the HTTP/1.1
// pipelining engine and the HTTP/2 multiplexing engine implement it; the
// Channel itself is protocol-agnostic.
type Engine interface {
	// Send enqueues req for transmission. It never blocks; if the engine is
	// back-pressured the request is queued internally.
	Send(req *message.Request) errs.Error

	// WriteReady is called when the transport's write buffer has room. It
	// serializes as much pending work as fits into buf.
	WriteReady(buf *buffer.Ring) errs.Error

	// ReadReady is called when new bytes have arrived in buf. It consumes
	// as much as it can parse and returns any resulting Events.
	ReadReady(buf *buffer.Ring) ([]Event, errs.Error)

	// Pending reports the number of requests the engine holds that are not
	// yet answered, whether already written or still queued.
	Pending() int

	// Drain removes and returns every request the engine still holds
	// (sent-but-unanswered, or queued), for the Channel to resend on a
	// fresh transport. The engine is left as if newly constructed.
	Drain() []*message.Request

	// RecyclePeer reports whether the peer asked the connection be closed
	// after the current exchange (e.g. "Connection: close").
	RecyclePeer() bool
}
