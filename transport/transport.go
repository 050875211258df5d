/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package transport implements the non-blocking TCP and TLS byte transports
// that sit under a protocol engine. Neither variant blocks a calling
// goroutine for more than a millisecond: every Read/Write call probes the
// socket with a one-millisecond deadline and reports "would block" rather
// than waiting longer, so the reactor can poll
// many transports from one goroutine.
package transport

import (
	"net"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
)

// State is the transport's connection lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateNegotiated
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateNegotiated:
		return "negotiated"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	CodeConnect = errs.MinPkgTransport + iota + 1
	CodeHandshake
	CodeRead
	CodeWrite
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgTransport) {
		panic("transport: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgTransport, func(code errs.CodeError) string {
		switch code {
		case CodeConnect:
			return "transport: connect failed"
		case CodeHandshake:
			return "transport: tls handshake failed"
		case CodeRead:
			return "transport: read failed"
		case CodeWrite:
			return "transport: write failed"
		default:
			return errs.NullMessage
		}
	})
}

// AddrSource is implemented by every concrete Transport; the Pool uses it
// to compare peer IPs when deciding whether an HTTP/2 channel opened for
// one hostname can be coalesced onto a request for another.
type AddrSource interface {
	RemoteIP() net.IP
}

// Result is the outcome of a non-blocking Read or Write call.
type Result struct {
	// N is the number of bytes moved. Zero with Closed=false means "would
	// block, try again once the reactor says this transport is ready".
	N int
	// Closed is true when the peer closed the connection or a fatal error
	// occurred; the transport is no longer usable.
	Closed bool
}

// Transport is a non-blocking byte pipe with a connect/handshake state
// machine and an ALPN-negotiated protocol name.
type Transport interface {
	// Connect is idempotent and non-blocking. Call it repeatedly — once per
	// reactor tick — until State() reaches StateConnected (or StateNegotiated
	// for TLS) or StateFailed.
	Connect() errs.Error

	// Read pulls up to max bytes into buf. It never blocks.
	Read(max int, buf *buffer.Ring) (Result, errs.Error)

	// Write drains buf onto the wire. It never blocks.
	Write(buf *buffer.Ring) (Result, errs.Error)

	// Protocol returns the ALPN-negotiated protocol ("h2" or "http/1.1").
	// Plain TCP transports always report "http/1.1". Valid only once State()
	// is StateConnected (TCP) or StateNegotiated (TLS).
	Protocol() string

	// ReadinessHandle is the opaque value the reactor uses to track this
	// transport's registration; transports compare equal by this handle.
	ReadinessHandle() any

	// State reports the current lifecycle state.
	State() State

	// Close releases the underlying socket. Idempotent.
	Close() error
}
