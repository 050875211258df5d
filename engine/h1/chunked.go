/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h1

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/message"
)

var errMalformedChunk = errors.New("h1: malformed chunk size")

type chunkPhase uint8

const (
	chunkSize chunkPhase = iota
	chunkData
	chunkDataCRLF
	chunkTrailer
	chunkDone
)

// chunkParser decodes an RFC 7230 §4.1 chunked body incrementally across
// however many ReadReady calls it takes for the bytes to arrive.
type chunkParser struct {
	phase  chunkPhase
	remain int64
}

// feed consumes as much of buf as forms complete chunk framing, writing
// decoded body bytes to sink. It returns the number of buf bytes consumed,
// whether the body is now fully decoded, and any framing error.
func (c *chunkParser) feed(buf *buffer.Ring, sink *message.BodySink) (n int, done bool, err error) {
	total := 0

	for {
		before := buf.Len()

		switch c.phase {
		case chunkSize:
			line, ok := readLine(buf)
			if !ok {
				return total, false, nil
			}
			total += before - buf.Len()
			if idx := strings.IndexByte(line, ';'); idx >= 0 {
				line = line[:idx]
			}
			size, perr := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
			if perr != nil {
				return total, false, errMalformedChunk
			}
			c.remain = size
			if size == 0 {
				c.phase = chunkTrailer
			} else {
				c.phase = chunkData
			}

		case chunkData:
			avail := buf.View()
			if len(avail) == 0 {
				return total, false, nil
			}
			take := int64(len(avail))
			if take > c.remain {
				take = c.remain
			}
			_, _ = sink.Write(avail[:take])
			buf.Consume(int(take))
			c.remain -= take
			total += int(take)
			if c.remain == 0 {
				c.phase = chunkDataCRLF
			} else {
				return total, false, nil
			}

		case chunkDataCRLF:
			if _, ok := readLine(buf); !ok {
				return total, false, nil
			}
			total += before - buf.Len()
			c.phase = chunkSize

		case chunkTrailer:
			line, ok := readLine(buf)
			if !ok {
				return total, false, nil
			}
			total += before - buf.Len()
			if line == "" {
				c.phase = chunkDone
				return total, true, nil
			}

		case chunkDone:
			return total, true, nil
		}
	}
}
