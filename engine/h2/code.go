/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package h2 implements client-side HTTP/2 multiplexing: one TCP/TLS
// connection carrying many concurrent streams, each an independent
// request/response exchange governed by RFC 7540 framing and flow control.
package h2

import "github.com/sabouaram/ahttp/errs"

const (
	CodeWriteFailed = errs.MinPkgEngineH2 + iota + 1
	CodeParseFailed
	CodeFlowControl
	CodeGoAway
	CodeProtocol
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgEngineH2) {
		panic("h2: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgEngineH2, func(code errs.CodeError) string {
		switch code {
		case CodeWriteFailed:
			return "h2: failed to serialize frame"
		case CodeParseFailed:
			return "h2: malformed frame"
		case CodeFlowControl:
			return "h2: flow control window violation"
		case CodeGoAway:
			return "h2: connection going away"
		case CodeProtocol:
			return "h2: protocol violation"
		default:
			return errs.NullMessage
		}
	})
}
