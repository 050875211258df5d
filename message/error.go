/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package message

import "github.com/sabouaram/ahttp/errs"

// ErrorResponse carries a failed request's classification and retry count.
type ErrorResponse struct {
	Kind    errs.Kind
	Cause   errs.Error
	Retries int
}

// Error implements the error interface.
func (e *ErrorResponse) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

// Retriable reports whether the caller may retry, given the error kind and
// retry count so far. Callers typically cap retries at a session policy
// value; this only reflects whether the kind itself is ever retriable.
func (e *ErrorResponse) Retriable() bool {
	return e.Kind.Retriable()
}
