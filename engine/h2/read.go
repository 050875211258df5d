/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import (
	"encoding/binary"
	"strconv"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"golang.org/x/net/http2/hpack"
)

// ReadReady consumes as many complete frames as buf currently holds,
// dispatching each to the connection or stream it targets.
func (e *Engine) ReadReady(buf *buffer.Ring) ([]channel.Event, errs.Error) {
	var events []channel.Event

	for {
		fh, ok := peekFrameHeader(buf)
		if !ok {
			return events, nil
		}
		if buf.Len() < frameHeaderLen+int(fh.length) {
			return events, nil
		}

		payload := make([]byte, fh.length)
		copy(payload, buf.View()[frameHeaderLen:frameHeaderLen+int(fh.length)])
		buf.Consume(frameHeaderLen + int(fh.length))

		evs, err := e.dispatchFrame(fh, payload)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
}

func (e *Engine) dispatchFrame(fh frameHeader, payload []byte) ([]channel.Event, errs.Error) {
	switch fh.typ {
	case frameSettings:
		return nil, e.handleSettings(fh, payload)
	case frameHeaders:
		return e.handleHeaders(fh, payload)
	case frameContinuation:
		return e.handleContinuation(fh, payload)
	case frameData:
		return e.handleData(fh, payload)
	case frameWindowUpdate:
		return nil, e.handleWindowUpdate(fh, payload)
	case frameRSTStream:
		return e.handleRSTStream(fh, payload)
	case framePing:
		return nil, e.handlePing(fh, payload)
	case frameGoAway:
		return e.handleGoAway(payload)
	case frameAltSvc:
		return e.handleAltSvc(payload), nil
	case framePushPromise:
		return e.handlePushPromise(fh, payload), nil
	case framePriority:
		return nil, nil
	default:
		// unknown frame types are ignored, per RFC 7540 §4.1.
		return nil, nil
	}
}

func (e *Engine) handleSettings(fh frameHeader, payload []byte) errs.Error {
	if fh.flags.has(flagAck) {
		return nil
	}
	vals, perr := parseSettings(payload)
	if perr != nil {
		return errs.New(CodeParseFailed, "h2: malformed settings frame", perr)
	}

	if v, ok := vals[settingMaxConcurrentStreams]; ok {
		e.peerCap = v
	}
	if v, ok := vals[settingMaxFrameSize]; ok && v >= defaultMaxFrameSize {
		e.peerMaxFrameSize = v
	}
	if v, ok := vals[settingInitialWindowSize]; ok {
		delta := int32(v) - e.peerInitialWindow
		e.peerInitialWindow = int32(v)
		for _, st := range e.streams {
			if !st.sendWindow.add(delta) {
				return errs.New(CodeFlowControl, "h2: settings window adjustment overflowed")
			}
		}
	}
	e.queueConnWrite(appendFrame(nil, frameSettings, flagAck, 0, nil))

	return e.promotePending()
}

// parseHeaderBlockFragment strips the PADDED and PRIORITY fields HEADERS
// (and the PADDED field on PUSH_PROMISE) may carry, returning the bare
// header block fragment.
func parseHeaderBlockFragment(payload []byte, flags frameFlags, hasPriority bool) ([]byte, error) {
	p := payload
	padLen := 0
	if flags.has(flagPadded) {
		if len(p) < 1 {
			return nil, errMalformedFrameHeader
		}
		padLen = int(p[0])
		p = p[1:]
	}
	if hasPriority {
		if len(p) < 5 {
			return nil, errMalformedFrameHeader
		}
		p = p[5:]
	}
	if padLen > len(p) {
		return nil, errMalformedFrameHeader
	}
	return p[:len(p)-padLen], nil
}

func (e *Engine) handleHeaders(fh frameHeader, payload []byte) ([]channel.Event, errs.Error) {
	frag, perr := parseHeaderBlockFragment(payload, fh.flags, fh.flags.has(flagPriority))
	if perr != nil {
		return nil, errs.New(CodeParseFailed, "h2: malformed HEADERS frame", perr)
	}

	st := e.streams[fh.streamID]
	if st == nil {
		return nil, nil
	}

	st.decodeBuf = append(st.decodeBuf, frag...)
	if fh.flags.has(flagEndStream) {
		st.decodeEndStream = true
	}
	if !fh.flags.has(flagEndHeaders) {
		e.decodingStreamID = fh.streamID
		return nil, nil
	}
	e.decodingStreamID = 0
	return e.finishHeaderBlock(st)
}

func (e *Engine) handleContinuation(fh frameHeader, payload []byte) ([]channel.Event, errs.Error) {
	st := e.streams[fh.streamID]
	if st == nil || e.decodingStreamID != fh.streamID {
		return nil, errs.New(CodeProtocol, "h2: unexpected CONTINUATION frame")
	}

	st.decodeBuf = append(st.decodeBuf, payload...)
	if !fh.flags.has(flagEndHeaders) {
		return nil, nil
	}
	e.decodingStreamID = 0
	return e.finishHeaderBlock(st)
}

func (e *Engine) finishHeaderBlock(st *stream) ([]channel.Event, errs.Error) {
	fields, err := e.decodeHeaderBlock(st)
	if err != nil {
		return nil, errs.New(CodeParseFailed, "h2: malformed header block", err)
	}

	if st.resp == nil {
		st.resp = message.NewResponse(e.bodyThreshold)
		st.resp.Version = "2.0"
	}
	for _, f := range fields {
		if f.Name == ":status" {
			if n, perr := strconv.Atoi(f.Value); perr == nil {
				st.resp.Status = n
			}
			continue
		}
		if len(f.Name) > 0 && f.Name[0] == ':' {
			continue
		}
		st.resp.Headers.Add(f.Name, f.Value)
	}

	if st.decodeEndStream {
		return e.finishStream(st), nil
	}
	return nil, nil
}

func (e *Engine) decodeHeaderBlock(st *stream) ([]hpack.HeaderField, error) {
	var fields []hpack.HeaderField
	e.hpackDec.SetEmitFunc(func(f hpack.HeaderField) { fields = append(fields, f) })
	if _, err := e.hpackDec.Write(st.decodeBuf); err != nil {
		return nil, err
	}
	st.decodeBuf = nil
	return fields, nil
}

// finishStream marks st's response complete and returns the single
// resulting event, removing st from the table and promoting a pending
// request into its place if any is queued.
func (e *Engine) finishStream(st *stream) []channel.Event {
	st.resp.MarkDone()
	st.halfCloseRemote()
	ev := channel.Event{Kind: channel.EventResponse, Request: st.req, Response: st.resp}
	e.removeStream(st.id)
	_ = e.promotePending()
	return []channel.Event{ev}
}

func (e *Engine) handleData(fh frameHeader, payload []byte) ([]channel.Event, errs.Error) {
	data := payload
	if fh.flags.has(flagPadded) {
		if len(data) < 1 {
			return nil, errs.New(CodeParseFailed, "h2: malformed DATA frame")
		}
		padLen := int(data[0])
		data = data[1:]
		if padLen > len(data) {
			return nil, errs.New(CodeParseFailed, "h2: malformed DATA frame padding")
		}
		data = data[:len(data)-padLen]
	}

	st := e.streams[fh.streamID]
	if st == nil {
		return nil, nil
	}
	if st.resp == nil {
		return nil, errs.New(CodeProtocol, "h2: DATA before HEADERS")
	}

	if len(data) > 0 {
		if _, werr := st.resp.Body.Write(data); werr != nil {
			return nil, errs.New(CodeWriteFailed, "h2: failed to buffer response body", werr)
		}
		st.recvWindow.consume(int32(len(data)))
		e.connRecvWindow.consume(int32(len(data)))

		// Replenish immediately: the sink never back-pressures the
		// application, so there is no "drained by the application"
		// moment to wait for.
		st.recvWindow.add(int32(len(data)))
		e.connRecvWindow.add(int32(len(data)))
		e.queueConnWrite(appendFrame(nil, frameWindowUpdate, 0, 0, windowUpdateIncrement(uint32(len(data)))))
		e.queueConnWrite(appendFrame(nil, frameWindowUpdate, 0, st.id, windowUpdateIncrement(uint32(len(data)))))
	}

	if fh.flags.has(flagEndStream) {
		return e.finishStream(st), nil
	}
	return nil, nil
}

func windowUpdateIncrement(n uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n&^(1<<31))
	return b[:]
}

func (e *Engine) handleWindowUpdate(fh frameHeader, payload []byte) errs.Error {
	if len(payload) != 4 {
		return errs.New(CodeParseFailed, "h2: malformed WINDOW_UPDATE frame")
	}
	inc := int32(binary.BigEndian.Uint32(payload) &^ (1 << 31))

	if fh.streamID == 0 {
		if !e.connSendWindow.add(inc) {
			return errs.New(CodeFlowControl, "h2: connection send window overflow")
		}
		return nil
	}
	if st := e.streams[fh.streamID]; st != nil {
		if !st.sendWindow.add(inc) {
			return errs.New(CodeFlowControl, "h2: stream send window overflow")
		}
	}
	return nil
}

func (e *Engine) handleRSTStream(fh frameHeader, payload []byte) ([]channel.Event, errs.Error) {
	st := e.streams[fh.streamID]
	if st == nil {
		return nil, nil
	}
	resp := st.resp
	if resp == nil {
		resp = message.NewResponse(e.bodyThreshold)
	}
	resp.Error = &message.ErrorResponse{
		Kind:  errs.KindPeerClosed,
		Cause: errs.New(CodeProtocol, "h2: stream reset by peer"),
	}
	resp.MarkDone()
	ev := channel.Event{Kind: channel.EventResponse, Request: st.req, Response: resp}
	e.removeStream(st.id)
	_ = e.promotePending()
	return []channel.Event{ev}, nil
}

func (e *Engine) handlePing(fh frameHeader, payload []byte) errs.Error {
	if fh.flags.has(flagAck) {
		return nil
	}
	cp := append([]byte(nil), payload...)
	e.queueConnWrite(appendFrame(nil, framePing, flagAck, 0, cp))
	return nil
}

func (e *Engine) handleGoAway(payload []byte) ([]channel.Event, errs.Error) {
	if len(payload) < 8 {
		return nil, errs.New(CodeParseFailed, "h2: malformed GOAWAY frame")
	}
	lastID := binary.BigEndian.Uint32(payload[:4]) &^ (1 << 31)

	e.goAwayReceived = true
	e.goAwayLastID = lastID

	var events []channel.Event
	for _, id := range append([]uint32(nil), e.order...) {
		if id <= lastID {
			continue
		}
		st := e.streams[id]
		if st == nil {
			continue
		}
		resp := message.NewResponse(e.bodyThreshold)
		resp.Error = &message.ErrorResponse{
			Kind:  errs.KindPeerClosed,
			Cause: errs.New(CodeGoAway, "h2: stream abandoned by GOAWAY"),
		}
		resp.MarkDone()
		events = append(events, channel.Event{Kind: channel.EventResponse, Request: st.req, Response: resp})
		e.removeStream(id)
	}
	return events, nil
}

func (e *Engine) handleAltSvc(payload []byte) []channel.Event {
	if len(payload) < 2 {
		return nil
	}
	originLen := int(binary.BigEndian.Uint16(payload[:2]))
	rest := payload[2:]
	if originLen > len(rest) {
		return nil
	}
	value := string(rest[originLen:])
	return []channel.Event{{Kind: channel.EventAltSvc, AltSvc: value}}
}

func (e *Engine) handlePushPromise(fh frameHeader, payload []byte) []channel.Event {
	// PUSH_PROMISE is surfaced for observers only; this engine never
	// fetches or caches pushed responses.
	return []channel.Event{{Kind: channel.EventPushPromise}}
}
