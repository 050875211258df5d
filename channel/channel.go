/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package channel couples one Transport to one protocol Engine and drives
// the non-blocking read/write cycle the Reactor calls on readiness. It also
// implements the close discipline that makes a lost connection transparent
// to the caller whenever the engine still held unanswered requests.
package channel

import (
	"crypto/x509"
	"net"
	"time"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/transport"
)

// defaultBufferCapacity is the size of each Channel's read and write Ring;
// large enough to hold a handful of framed requests/responses without the
// engine stalling on buffer.Full() every tick.
const defaultBufferCapacity = 64 * 1024

// maxReadPerCall caps how many bytes a single Call reads from the wire, so
// one very chatty connection can't starve the reactor's other participants.
const maxReadPerCall = 32 * 1024

// Interest is the set of readiness events a Channel currently wants to be
// woken for.
type Interest struct {
	Read  bool
	Write bool
}

// TransportFactory builds a fresh, not-yet-connected Transport. The Pool
// supplies one per (scheme, host, port) key so a Channel can replace its
// Transport after a close/reconnect cycle.
type TransportFactory func() transport.Transport

// EngineFactory builds the Engine matching the ALPN-negotiated protocol
// ("h2" or "http/1.1"), once known.
type EngineFactory func(protocol string) Engine

// Channel couples one Transport to one Engine, per spec.md §4.C/§4.F.
//
// The Engine is nil until the Transport first reaches StateConnected (plain
// TCP) or StateNegotiated (TLS, ALPN known): everything sent before then
// sits in pending. The same pending queue receives every request the
// Engine was still holding if the connection is later lost and needs to be
// torn down and rebuilt.
type Channel struct {
	newTransport TransportFactory
	newEngine    EngineFactory

	transport transport.Transport
	engine    Engine

	readBuf  *buffer.Ring
	writeBuf *buffer.Ring

	pending []*message.Request
	closed  bool
}

// New returns a Channel with a freshly built Transport and no Engine yet.
func New(newTransport TransportFactory, newEngine EngineFactory) *Channel {
	return &Channel{
		newTransport: newTransport,
		newEngine:    newEngine,
		transport:    newTransport(),
		readBuf:      buffer.New(defaultBufferCapacity),
		writeBuf:     buffer.New(defaultBufferCapacity),
	}
}

// Closed reports whether the Channel has discarded itself (no Transport,
// no Engine, nothing to replay) and must be replaced by whoever holds it.
func (c *Channel) Closed() bool {
	return c.closed
}

// Pending reports the number of requests sent-but-unanswered or still
// queued locally, across both the Channel's own queue and the Engine's.
func (c *Channel) Pending() int {
	n := len(c.pending)
	if c.engine != nil {
		n += c.engine.Pending()
	}
	return n
}

// ReadinessHandle exposes the underlying Transport's handle, for the
// Reactor to register interest against.
func (c *Channel) ReadinessHandle() any {
	return c.transport.ReadinessHandle()
}

// Protocol returns the Transport's ALPN-negotiated protocol, or "" before
// an Engine has been selected.
func (c *Channel) Protocol() string {
	if c.engine == nil {
		return ""
	}
	return c.transport.Protocol()
}

// Certificate returns the peer certificate the Transport's TLS handshake
// presented, or nil for a plain-TCP transport or before negotiation
// completes. Used by the Pool to verify SAN coverage before coalescing.
func (c *Channel) Certificate() *x509.Certificate {
	if src, ok := c.transport.(transport.CertificateSource); ok {
		return src.PeerCertificate()
	}
	return nil
}

// RemoteIP returns the Transport's peer IP, or nil before it connects.
func (c *Channel) RemoteIP() net.IP {
	if src, ok := c.transport.(transport.AddrSource); ok {
		return src.RemoteIP()
	}
	return nil
}

// Interest computes what this Channel wants the Reactor to wake it for,
// per spec.md §4.C:
//
//	idle/connecting  -> write     (drive the connect state machine)
//	read_buf full    -> write-only
//	write_buf empty  -> read-only
//	else             -> read+write
func (c *Channel) Interest() Interest {
	if c.closed {
		return Interest{}
	}

	switch c.transport.State() {
	case transport.StateIdle, transport.StateConnecting:
		return Interest{Write: true}
	case transport.StateFailed, transport.StateClosed:
		return Interest{}
	}

	if c.readBuf.Full() {
		return Interest{Write: true}
	}
	if c.writeBuf.Empty() {
		return Interest{Read: true}
	}
	return Interest{Read: true, Write: true}
}

// NextDeadline reports the earliest non-zero Request.Deadline among
// requests still waiting in the local queue, for the Reactor's min-timeout
// wake calculation. Requests already handed to the Engine aren't visible
// here: their deadline enforcement is the session layer's job (see
// DESIGN.md Open Question resolution 4), since neither Engine
// implementation tracks per-request deadlines once it owns the request.
func (c *Channel) NextDeadline() (time.Time, bool) {
	var best time.Time
	found := false
	for _, req := range c.pending {
		if req.Deadline.IsZero() {
			continue
		}
		if !found || req.Deadline.Before(best) {
			best = req.Deadline
			found = true
		}
	}
	return best, found
}

// Send enqueues req. It is handed to the Engine immediately if one has
// already been selected; otherwise it waits in pending until the Transport
// finishes connecting (or is replayed after a reconnect).
func (c *Channel) Send(req *message.Request) errs.Error {
	if c.closed {
		return errs.New(CodeClosed, "channel: send on closed channel")
	}
	c.pending = append(c.pending, req)
	return c.flushPending()
}

// flushPending drains the local queue into the Engine in FIFO order, once
// one exists. Engine.Send queues internally rather than reporting
// back-pressure; an error from it stops the drain and leaves the failed
// request and everything after it in c.pending.
func (c *Channel) flushPending() errs.Error {
	if c.engine == nil {
		return nil
	}
	for len(c.pending) > 0 {
		req := c.pending[0]
		if err := c.engine.Send(req); err != nil {
			return err
		}
		c.pending = c.pending[1:]
	}
	return nil
}

// Call is the Reactor callback: it drives the connect state machine, reads
// as much as the transport offers into read_buf, hands those bytes to the
// engine, drains whatever the engine produces into write_buf, and writes
// that onto the wire. Any failure on either side is caught here and
// resolved via the close discipline (teardown), never propagated as an
// error the Reactor must itself handle.
func (c *Channel) Call() []Event {
	if c.closed {
		return nil
	}

	if c.engine == nil {
		return c.pumpConnect()
	}

	var events []Event

	if !c.readBuf.Full() {
		res, rerr := c.transport.Read(maxReadPerCall, c.readBuf)
		if rerr != nil || res.Closed {
			return c.teardown()
		}
	}

	evs, eerr := c.engine.ReadReady(c.readBuf)
	if eerr != nil {
		return c.teardown()
	}
	events = append(events, evs...)

	if werr := c.engine.WriteReady(c.writeBuf); werr != nil {
		return c.teardown()
	}

	if !c.writeBuf.Empty() {
		res, werr := c.transport.Write(c.writeBuf)
		if werr != nil || res.Closed {
			return c.teardown()
		}
	}

	if c.engine.RecyclePeer() && c.engine.Pending() == 0 && len(c.pending) == 0 {
		return c.teardown()
	}

	return events
}

// pumpConnect drives Transport.Connect() while no Engine has been selected
// yet, selecting one (and flushing anything queued) the moment ALPN is
// known.
func (c *Channel) pumpConnect() []Event {
	if err := c.transport.Connect(); err != nil {
		return c.teardown()
	}

	switch c.transport.State() {
	case transport.StateConnected, transport.StateNegotiated:
		c.engine = c.newEngine(c.transport.Protocol())
		if err := c.flushPending(); err != nil {
			return c.teardown()
		}
	case transport.StateFailed, transport.StateClosed:
		return c.teardown()
	}
	return nil
}

// teardown closes the transport and asks the engine whether it still holds
// requests, per spec.md §4.F. If not, the channel discards itself. If it
// does, a fresh transport replaces the dead one and every held request
// (engine-held and locally queued) is requeued for replay once the new
// transport reconnects — transparent recovery from peer-initiated
// connection loss, as long as the requests themselves are idempotent.
func (c *Channel) teardown() []Event {
	_ = c.transport.Close()

	held := append([]*message.Request(nil), c.pending...)
	if c.engine != nil {
		held = append(held, c.engine.Drain()...)
	}
	c.pending = nil
	c.engine = nil

	if len(held) == 0 {
		c.closed = true
		return nil
	}

	c.transport = c.newTransport()
	c.pending = held
	return nil
}
