/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h2

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"golang.org/x/net/http2/hpack"
)

// connHeaders are end-to-end headers that have no place in HTTP/2, per
// RFC 7540 §8.1.2.2.
var connHeaders = map[string]bool{
	"connection":        true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"transfer-encoding": true,
	"upgrade":           true,
	"host":              true,
}

// encodeHeaders builds the hpack-encoded pseudo-header + header block for
// req, in the order RFC 7540 §8.1.2.3 recommends (pseudo-headers first).
func (e *Engine) encodeHeaders(req *message.Request) ([]byte, error) {
	e.hpackEncBuf.Reset()

	authority := req.URI.Host
	if (req.URI.Scheme == "https" && req.URI.Port != 443) || (req.URI.Scheme == "http" && req.URI.Port != 80) {
		authority = fmt.Sprintf("%s:%d", req.URI.Host, req.URI.Port)
	}

	fields := []hpack.HeaderField{
		{Name: ":method", Value: strings.ToUpper(req.Verb)},
		{Name: ":scheme", Value: req.URI.Scheme},
		{Name: ":authority", Value: authority},
		{Name: ":path", Value: req.URI.PathWithQuery()},
	}

	hasContentLength := false
	req.Headers.Range(func(name, value string) {
		if connHeaders[name] {
			return
		}
		if name == "content-length" {
			hasContentLength = true
		}
		fields = append(fields, hpack.HeaderField{Name: name, Value: value})
	})

	if !hasContentLength && req.HasBody() {
		if n, ok := req.Body.Len(); ok {
			fields = append(fields, hpack.HeaderField{Name: "content-length", Value: strconv.FormatInt(n, 10)})
		}
	}

	for _, f := range fields {
		if err := e.hpackEnc.WriteField(f); err != nil {
			return nil, err
		}
	}

	out := make([]byte, e.hpackEncBuf.Len())
	copy(out, e.hpackEncBuf.Bytes())
	return out, nil
}

// WriteReady drains the connection preamble first, then each stream's
// header block, then each stream's body, in allocation order. A stream
// blocked on its own flow-control window doesn't stop the others; only
// buf running out of room does.
func (e *Engine) WriteReady(buf *buffer.Ring) errs.Error {
	if e.connWriteOff < len(e.connWrite) {
		if !e.appendAsMuchAsFits(buf, e.connWrite, &e.connWriteOff) {
			return nil
		}
		e.connWrite = nil
		e.connWriteOff = 0
	}

	for _, id := range e.order {
		if buf.Full() {
			return nil
		}

		st := e.streams[id]
		if st == nil || st.send == sendDone {
			continue
		}

		if st.send == sendHeaders {
			if !e.writeStreamHeaders(buf, st) {
				if buf.Full() {
					return nil
				}
				continue
			}
		}

		if st.send == sendBody {
			done, err := e.writeStreamBody(buf, st)
			if err != nil {
				return err
			}
			if !done {
				if buf.Full() {
					return nil
				}
				continue
			}
		}
	}

	return nil
}

// appendAsMuchAsFits appends src[*off:] to buf up to however much room buf
// has, advancing *off. It reports whether src is now fully drained.
func (e *Engine) appendAsMuchAsFits(buf *buffer.Ring, src []byte, off *int) bool {
	room := buf.Cap() - buf.Len()
	if room <= 0 {
		return false
	}
	remaining := src[*off:]
	take := remaining
	if len(take) > room {
		take = take[:room]
	}
	if len(take) == 0 {
		return *off >= len(src)
	}
	if err := buf.Append(take); err != nil {
		return false
	}
	*off += len(take)
	return *off >= len(src)
}

// writeStreamHeaders writes st's HEADERS frame (splitting into CONTINUATION
// frames if the block exceeds one frame) and advances st to sendBody or
// sendDone. It returns false if buf ran out of room mid-block.
func (e *Engine) writeStreamHeaders(buf *buffer.Ring, st *stream) bool {
	endStream := !st.req.HasBody()

	for st.headerOff < len(st.headerBlock) {
		remaining := st.headerBlock[st.headerOff:]
		chunk := remaining
		first := st.headerOff == 0
		if len(chunk) > int(e.peerMaxFrameSize) {
			chunk = chunk[:e.peerMaxFrameSize]
		}

		var flags frameFlags
		last := st.headerOff+len(chunk) >= len(st.headerBlock)
		if last {
			flags |= flagEndHeaders
		}
		if first && endStream {
			flags |= flagEndStream
		}

		typ := frameContinuation
		if first {
			typ = frameHeaders
		}

		frame := appendFrame(nil, typ, flags, st.id, chunk)
		room := buf.Cap() - buf.Len()
		if room < len(frame) {
			return false
		}
		if err := buf.Append(frame); err != nil {
			return false
		}
		st.headerOff += len(chunk)
	}

	if endStream {
		st.halfCloseLocal()
		st.send = sendDone
	} else {
		st.send = sendBody
	}
	return true
}

// writeStreamBody pulls chunks from st.req.Body (or a previously undrained
// remainder) and frames them as DATA, honoring both flow-control windows
// and the destination buffer's remaining room. If buf fills mid-chunk the
// remainder is kept on the stream and resumed on the next WriteReady call.
func (e *Engine) writeStreamBody(buf *buffer.Ring, st *stream) (done bool, err errs.Error) {
	for {
		if len(st.pendingBody) == 0 && !st.bodyEOF {
			chunk, berr := st.req.Body.Next()
			if len(chunk) > 0 {
				st.pendingBody = append([]byte(nil), chunk...)
			}
			if berr == io.EOF {
				st.bodyEOF = true
			} else if berr != nil {
				return false, errs.New(CodeWriteFailed, "h2: request body read failed", berr)
			}
		}

		if len(st.pendingBody) == 0 {
			if !st.bodyEOF {
				return false, nil
			}
			frame := appendFrame(nil, frameData, flagEndStream, st.id, nil)
			if buf.Cap()-buf.Len() < len(frame) {
				return false, nil
			}
			_ = buf.Append(frame)
			st.halfCloseLocal()
			st.send = sendDone
			return true, nil
		}

		maxFrame := int(e.peerMaxFrameSize)
		take := len(st.pendingBody)
		if take > maxFrame {
			take = maxFrame
		}
		if int32(take) > st.sendWindow.available() {
			take = int(st.sendWindow.available())
		}
		if int32(take) > e.connSendWindow.available() {
			take = int(e.connSendWindow.available())
		}
		if take == 0 {
			return false, nil
		}

		endStream := st.bodyEOF && take == len(st.pendingBody)
		var flags frameFlags
		if endStream {
			flags |= flagEndStream
		}
		frame := appendFrame(nil, frameData, flags, st.id, st.pendingBody[:take])
		if buf.Cap()-buf.Len() < len(frame) {
			return false, nil
		}
		if err := buf.Append(frame); err != nil {
			return false, nil
		}

		st.sendWindow.consume(int32(take))
		e.connSendWindow.consume(int32(take))
		st.pendingBody = st.pendingBody[take:]

		if endStream {
			st.halfCloseLocal()
			st.send = sendDone
			return true, nil
		}
	}
}
