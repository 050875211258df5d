/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import (
	"encoding/binary"
	"errors"

	"github.com/sabouaram/ahttp/buffer"
)

// clientPreface is the fixed 24-byte connection preface a client must send
// before any frame, per RFC 7540 §3.5.
const clientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// frameHeaderLen is the fixed size of the frame header described in
// RFC 7540 §4.1: 3-byte length, 1-byte type, 1-byte flags, 4-byte stream id
// (top bit reserved).
const frameHeaderLen = 9

// defaultMaxFrameSize is the minimum legal SETTINGS_MAX_FRAME_SIZE and the
// value we assume for the peer until its SETTINGS say otherwise.
const defaultMaxFrameSize = 16384

// defaultInitialWindowSize is both RFC 7540's default per-stream window and
// the value we advertise for our own in our first SETTINGS frame.
const defaultInitialWindowSize = 65535

type frameType uint8

const (
	frameData         frameType = 0x0
	frameHeaders      frameType = 0x1
	framePriority     frameType = 0x2
	frameRSTStream    frameType = 0x3
	frameSettings     frameType = 0x4
	framePushPromise  frameType = 0x5
	framePing         frameType = 0x6
	frameGoAway       frameType = 0x7
	frameWindowUpdate frameType = 0x8
	frameContinuation frameType = 0x9
	frameAltSvc       frameType = 0xa
)

type frameFlags uint8

const (
	flagEndStream  frameFlags = 0x1
	flagAck        frameFlags = 0x1
	flagEndHeaders frameFlags = 0x4
	flagPadded     frameFlags = 0x8
	flagPriority   frameFlags = 0x20
)

func (f frameFlags) has(v frameFlags) bool { return f&v == v }

var errMalformedFrameHeader = errors.New("h2: malformed frame header")

// frameHeader is a parsed RFC 7540 §4.1 frame header.
type frameHeader struct {
	length   uint32
	typ      frameType
	flags    frameFlags
	streamID uint32
}

// peekFrameHeader parses the next frame header from buf without consuming
// it, so the caller can first confirm the full payload has arrived. ok is
// false if buf doesn't yet hold a complete header.
func peekFrameHeader(buf *buffer.Ring) (frameHeader, bool) {
	v := buf.View()
	if len(v) < frameHeaderLen {
		return frameHeader{}, false
	}
	length := uint32(v[0])<<16 | uint32(v[1])<<8 | uint32(v[2])
	typ := frameType(v[3])
	flags := frameFlags(v[4])
	streamID := binary.BigEndian.Uint32(v[5:9]) &^ (1 << 31)
	return frameHeader{length: length, typ: typ, flags: flags, streamID: streamID}, true
}

// appendFrameHeader writes a frame header for a payload of the given length
// to out, returning the grown slice.
func appendFrameHeader(out []byte, length uint32, typ frameType, flags frameFlags, streamID uint32) []byte {
	out = append(out,
		byte(length>>16), byte(length>>8), byte(length),
		byte(typ),
		byte(flags),
	)
	var sid [4]byte
	binary.BigEndian.PutUint32(sid[:], streamID)
	return append(out, sid[:]...)
}

// appendFrame writes a complete frame (header + payload) to out.
func appendFrame(out []byte, typ frameType, flags frameFlags, streamID uint32, payload []byte) []byte {
	out = appendFrameHeader(out, uint32(len(payload)), typ, flags, streamID)
	return append(out, payload...)
}
