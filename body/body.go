/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package body builds message.Body values from common Go shapes (a struct
// to marshal as JSON, a url.Values to encode as a form, a raw io.Reader),
// the way httpcli's request builder offers RequestJson/RequestReader
// instead of making every caller hand-construct a message.Body.
package body

import (
	"encoding/json"
	"io"
	"net/url"

	"github.com/sabouaram/ahttp/message"
)

// Encoded pairs a message.Body with the Content-Type header it implies, so
// a caller can set both on a message.Request in one step.
type Encoded struct {
	Body        message.Body
	ContentType string
}

// JSON marshals v and wraps it as an Encoded with an application/json
// Content-Type.
func JSON(v interface{}) (Encoded, error) {
	p, err := json.Marshal(v)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{
		Body:        message.NewBytesBody(p),
		ContentType: "application/json",
	}, nil
}

// Form url-encodes values and wraps the result as an Encoded with an
// application/x-www-form-urlencoded Content-Type.
func Form(values url.Values) Encoded {
	return Encoded{
		Body:        message.NewBytesBody([]byte(values.Encode())),
		ContentType: "application/x-www-form-urlencoded",
	}
}

// Text wraps s as a plain-text Encoded.
func Text(s string) Encoded {
	return Encoded{
		Body:        message.NewBytesBody([]byte(s)),
		ContentType: "text/plain; charset=utf-8",
	}
}

// Reader wraps r as a streaming Encoded with contentType, for callers that
// already have an io.Reader and know its content type (or chunked transfer
// is acceptable). chunkSize is forwarded to message.NewReaderBody; 0
// selects its default.
func Reader(r io.Reader, contentType string, chunkSize int) Encoded {
	return Encoded{
		Body:        message.NewReaderBody(r, chunkSize),
		ContentType: contentType,
	}
}

// Apply sets req's Body and Content-Type header from e.
func (e Encoded) Apply(req *message.Request) {
	req.Body = e.Body
	if e.ContentType != "" {
		req.Headers.Set("Content-Type", e.ContentType)
	}
}
