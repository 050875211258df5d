/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import (
	"bytes"
	"math"

	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"golang.org/x/net/http2/hpack"
)

// Engine implements channel.Engine for HTTP/2: one connection, a table of
// concurrent streams, and connection-level flow control on top of it.
type Engine struct {
	selfCap uint32
	peerCap uint32 // math.MaxUint32 until the peer's SETTINGS arrive

	nextStreamID  uint32
	order         []uint32
	streams       map[uint32]*stream
	pending       []*message.Request
	bodyThreshold int64

	connSendWindow flowWindow
	connRecvWindow flowWindow

	hpackEncBuf bytes.Buffer
	hpackEnc    *hpack.Encoder
	hpackDec    *hpack.Decoder

	decodingStreamID uint32 // stream id mid-HEADERS/CONTINUATION, 0 if none

	connWrite    []byte // preface + our SETTINGS + any queued acks/pings/window-updates
	connWriteOff int

	goAwayReceived bool
	goAwayLastID   uint32

	peerInitialWindow int32
	peerMaxFrameSize  uint32
}

// New returns an Engine that will advertise selfCap as
// SETTINGS_MAX_CONCURRENT_STREAMS and cap concurrent streams to
// min(selfCap, peer's advertised cap). bodyThreshold is the byte count past
// which a response body spills to disk (0 selects message.SpillThreshold).
func New(selfCap uint32, bodyThreshold int64) *Engine {
	if selfCap == 0 {
		selfCap = 100
	}
	e := &Engine{
		selfCap:           selfCap,
		peerCap:           math.MaxUint32,
		nextStreamID:      1,
		streams:           make(map[uint32]*stream),
		bodyThreshold:     bodyThreshold,
		connSendWindow:    newFlowWindow(defaultInitialWindowSize),
		connRecvWindow:    newFlowWindow(defaultInitialWindowSize),
		peerInitialWindow: defaultInitialWindowSize,
		peerMaxFrameSize:  defaultMaxFrameSize,
	}
	e.hpackEnc = hpack.NewEncoder(&e.hpackEncBuf)
	e.hpackDec = hpack.NewDecoder(4096, nil)

	e.connWrite = append(e.connWrite, []byte(clientPreface)...)
	e.connWrite = appendFrame(e.connWrite, frameSettings, 0, 0, defaultClientSettings(selfCap))
	return e
}

var _ channel.Engine = (*Engine)(nil)

func (e *Engine) effectiveCap() uint32 {
	if e.selfCap < e.peerCap {
		return e.selfCap
	}
	return e.peerCap
}

func (e *Engine) Send(req *message.Request) errs.Error {
	if !e.goAwayReceived && uint32(len(e.streams)) < e.effectiveCap() {
		if err := e.allocateStream(req); err != nil {
			return err
		}
		return nil
	}
	e.pending = append(e.pending, req)
	return nil
}

func (e *Engine) allocateStream(req *message.Request) errs.Error {
	id := e.nextStreamID
	e.nextStreamID += 2

	st := newStream(id, req, e.peerInitialWindow)
	block, err := e.encodeHeaders(req)
	if err != nil {
		return errs.New(CodeWriteFailed, "h2: failed to encode headers", err)
	}
	st.headerBlock = block

	e.streams[id] = st
	e.order = append(e.order, id)
	return nil
}

// Pending reports requests with an active stream plus requests still
// waiting for a free stream slot.
func (e *Engine) Pending() int {
	return len(e.streams) + len(e.pending)
}

func (e *Engine) RecyclePeer() bool {
	return e.goAwayReceived
}

// Drain empties the engine and returns every request it held, in FIFO
// allocation order followed by the queued-pending order.
func (e *Engine) Drain() []*message.Request {
	out := make([]*message.Request, 0, e.Pending())
	for _, id := range e.order {
		if st, ok := e.streams[id]; ok {
			out = append(out, st.req)
		}
	}
	out = append(out, e.pending...)

	e.streams = make(map[uint32]*stream)
	e.order = nil
	e.pending = nil
	e.decodingStreamID = 0
	return out
}

// promotePending moves queued requests into fresh streams while the
// concurrency cap and GOAWAY status allow it.
func (e *Engine) promotePending() errs.Error {
	for len(e.pending) > 0 && !e.goAwayReceived && uint32(len(e.streams)) < e.effectiveCap() {
		req := e.pending[0]
		e.pending = e.pending[1:]
		if err := e.allocateStream(req); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) removeStream(id uint32) {
	delete(e.streams, id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Engine) queueConnWrite(b []byte) {
	e.connWrite = append(e.connWrite, b...)
}
