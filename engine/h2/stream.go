/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import "github.com/sabouaram/ahttp/message"

type streamState uint8

const (
	streamIdle streamState = iota
	streamOpen
	streamHalfClosedLocal
	streamHalfClosedRemote
	streamClosed
)

// sendState is the request-state progression spec'd for a stream's outbound
// side: idle -> headers -> body -> done.
type sendState uint8

const (
	sendHeaders sendState = iota
	sendBody
	sendDone
)

// stream is one bidirectional logical sequence of frames within the
// connection; the engine's stream table maps request -> stream.
type stream struct {
	id    uint32
	req   *message.Request
	resp  *message.Response
	state streamState

	sendWindow flowWindow // how much DATA we may still write
	recvWindow flowWindow // how much DATA the peer may still send us

	send sendState

	headerBlock []byte // hpack-encoded request headers, built once at allocation
	headerOff   int

	bodyEOF     bool   // request body iterator has reported io.EOF
	pendingBody []byte // undrained chunk left over from a short WriteReady

	// decode accumulates HEADERS+CONTINUATION fragments for the response
	// until END_HEADERS, then is reset.
	decodeBuf       []byte
	decodeEndStream bool
}

func newStream(id uint32, req *message.Request, peerInitialWindow int32) *stream {
	return &stream{
		id:         id,
		req:        req,
		state:      streamOpen,
		sendWindow: newFlowWindow(peerInitialWindow),
		recvWindow: newFlowWindow(defaultInitialWindowSize),
	}
}

func (s *stream) halfCloseLocal() {
	switch s.state {
	case streamOpen:
		s.state = streamHalfClosedLocal
	case streamHalfClosedRemote:
		s.state = streamClosed
	}
}

func (s *stream) halfCloseRemote() {
	switch s.state {
	case streamOpen:
		s.state = streamHalfClosedRemote
	case streamHalfClosedLocal:
		s.state = streamClosed
	}
}
