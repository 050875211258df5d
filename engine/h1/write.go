/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package h1

import (
	"fmt"
	"io"
	"strings"

	"github.com/sabouaram/ahttp/message"
)

type pendingWrite struct {
	req   *message.Request
	bytes []byte
	off   int
}

var noBodyVerbs = map[string]bool{
	"get": true, "head": true, "delete": true, "options": true, "trace": true,
}

// serialize builds the full wire representation of req: request line,
// headers, and body framed by Content-Length or chunked Transfer-Encoding.
func serialize(req *message.Request) (*pendingWrite, error) {
	var b strings.Builder

	verbUpper := strings.ToUpper(req.Verb)
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", verbUpper, req.URI.PathWithQuery())

	hdr := req.Headers.Clone()
	if !hdr.Has("host") {
		hdr.Set("Host", req.URI.Host)
	}
	if !hdr.Has("user-agent") {
		hdr.Set("User-Agent", "ahttp")
	}

	hasBody := req.HasBody() && !noBodyVerbs[req.Verb]
	var bodyBytes []byte
	chunked := false

	if hasBody {
		n, ok := req.Body.Len()
		if ok {
			hdr.Set("Content-Length", fmt.Sprintf("%d", n))
			buf, err := drainAll(req.Body)
			if err != nil {
				return nil, err
			}
			bodyBytes = buf
		} else {
			hdr.Set("Transfer-Encoding", "chunked")
			chunked = true
		}
	}

	hdr.Range(func(name, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", canonicalHeaderName(name), value)
	})
	b.WriteString("\r\n")

	out := []byte(b.String())
	if hasBody {
		if chunked {
			enc, err := encodeChunked(req.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		} else {
			out = append(out, bodyBytes...)
		}
	}

	return &pendingWrite{req: req, bytes: out}, nil
}

func drainAll(body message.Body) ([]byte, error) {
	var out []byte
	for {
		chunk, err := body.Next()
		if len(chunk) > 0 {
			out = append(out, chunk...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// encodeChunked drains body synchronously; a Body.Next implementation that
// blocks (e.g. a slow io.Reader) blocks this call along with it.
func encodeChunked(body message.Body) ([]byte, error) {
	var out []byte
	for {
		chunk, err := body.Next()
		if len(chunk) > 0 {
			out = append(out, []byte(fmt.Sprintf("%x\r\n", len(chunk)))...)
			out = append(out, chunk...)
			out = append(out, '\r', '\n')
		}
		if err == io.EOF {
			out = append(out, []byte("0\r\n\r\n")...)
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// canonicalHeaderName title-cases a lowercase header name for the wire
// ("content-type" -> "Content-Type").
func canonicalHeaderName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}
