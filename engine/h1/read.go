/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
)

type bodyMode uint8

const (
	modeNone bodyMode = iota
	modeLength
	modeChunked
	modeEOF
)

type parsePhase uint8

const (
	phaseStatusLine parsePhase = iota
	phaseHeaders
	phaseBody
)

// readState tracks incremental parse progress for the head-of-line
// response (inflight[0]); it resets each time a response completes.
type readState struct {
	phase parsePhase
}

// ReadReady consumes as many complete responses as buf currently holds.
func (e *Engine) ReadReady(buf *buffer.Ring) ([]channel.Event, errs.Error) {
	var events []channel.Event

	for len(e.inflight) > 0 {
		ir := e.inflight[0]
		progressed, done, err := e.step(ir, buf)
		if err != nil {
			return events, err
		}
		if done {
			ir.req.State = message.StateDone
			ir.resp.MarkDone()
			events = append(events, channel.Event{Kind: channel.EventResponse, Request: ir.req, Response: ir.resp})
			e.inflight = e.inflight[1:]
			e.readState = readState{}
			if e.recycle {
				if len(e.inflight) > 0 || len(e.writeQueue) > 0 {
					e.pipelineDisabled = true
				}
				break
			}
			continue
		}
		if !progressed {
			break
		}
	}

	return events, nil
}

// step advances parsing for ir by whatever is currently buffered. It
// returns progressed=true if it consumed any bytes, done=true once the
// response (headers+body) is fully parsed.
func (e *Engine) step(ir *inflightRequest, buf *buffer.Ring) (progressed bool, done bool, err errs.Error) {
	switch e.readState.phase {
	case phaseStatusLine:
		line, ok := readLine(buf)
		if !ok {
			return false, false, nil
		}
		status, version, perr := parseStatusLine(line)
		if perr != nil {
			return true, false, errs.New(CodeParseFailed, "h1: bad status line", perr)
		}
		if status == 100 {
			// discard the 100-continue's (empty) header block, then await
			// the real status line.
			e.readState.phase = phaseHeaders
			ir.resp = nil
			return true, false, nil
		}
		ir.resp = message.NewResponse(e.bodyThreshold)
		ir.resp.Status = status
		ir.resp.Version = version
		e.readState.phase = phaseHeaders
		return true, false, nil

	case phaseHeaders:
		line, ok := readLine(buf)
		if !ok {
			return false, false, nil
		}
		if line == "" {
			if ir.resp == nil {
				// blank line terminating a discarded 100-continue block.
				e.readState.phase = phaseStatusLine
				return true, false, nil
			}
			e.configureBodyMode(ir)
			e.readState.phase = phaseBody
			return true, false, nil
		}
		if ir.resp != nil {
			name, value, perr := parseHeaderLine(line)
			if perr != nil {
				return true, false, errs.New(CodeParseFailed, "h1: bad header line", perr)
			}
			ir.resp.Headers.Add(name, value)
		}
		return true, false, nil

	case phaseBody:
		return e.stepBody(ir, buf)
	}

	return false, false, nil
}

func (e *Engine) configureBodyMode(ir *inflightRequest) {
	if strings.EqualFold(ir.resp.Headers.Get("Connection"), "close") {
		e.recycle = true
	}
	if ir.req.Verb == "head" || ir.resp.Status == 204 || ir.resp.Status == 304 {
		ir.bodyMode = modeNone
		return
	}
	if te := ir.resp.Headers.Get("Transfer-Encoding"); strings.EqualFold(te, "chunked") {
		ir.bodyMode = modeChunked
		ir.chunk = chunkParser{}
		return
	}
	if cl := ir.resp.Headers.Get("Content-Length"); cl != "" {
		if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil {
			ir.bodyMode = modeLength
			ir.remain = n
			return
		}
	}
	e.recycle = true
	ir.bodyMode = modeEOF
}

func (e *Engine) stepBody(ir *inflightRequest, buf *buffer.Ring) (progressed bool, done bool, err errs.Error) {
	switch ir.bodyMode {
	case modeNone:
		return false, true, nil

	case modeLength:
		if ir.remain == 0 {
			return false, true, nil
		}
		avail := buf.View()
		if len(avail) == 0 {
			return false, false, nil
		}
		take := int64(len(avail))
		if take > ir.remain {
			take = ir.remain
		}
		_, _ = ir.resp.Body.Write(avail[:take])
		buf.Consume(int(take))
		ir.remain -= take
		return true, ir.remain == 0, nil

	case modeChunked:
		n, fin, cerr := ir.chunk.feed(buf, ir.resp.Body)
		if cerr != nil {
			return n > 0, false, errs.New(CodeParseFailed, "h1: bad chunked body", cerr)
		}
		return n > 0, fin, nil

	case modeEOF:
		avail := buf.View()
		if len(avail) == 0 {
			return false, false, nil
		}
		_, _ = ir.resp.Body.Write(avail)
		buf.Consume(len(avail))
		return true, false, nil
	}
	return false, false, nil
}

// readLine pulls one CRLF- or LF-terminated line out of buf, without the
// terminator, or ok=false if buf doesn't yet hold a full line.
func readLine(buf *buffer.Ring) (string, bool) {
	v := buf.View()
	idx := bytes.IndexByte(v, '\n')
	if idx < 0 {
		return "", false
	}
	end := idx
	if end > 0 && v[end-1] == '\r' {
		end--
	}
	line := string(v[:end])
	buf.Consume(idx + 1)
	return line, true
}

func parseStatusLine(line string) (status int, version string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, "", errMalformedStatusLine
	}
	version = "1.1"
	if strings.HasPrefix(parts[0], "HTTP/1.0") {
		version = "1.0"
	}
	status, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", errMalformedStatusLine
	}
	return status, version, nil
}

func parseHeaderLine(line string) (name, value string, err error) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", errMalformedHeaderLine
	}
	name = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return name, value, nil
}
