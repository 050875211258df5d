/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package session

import "github.com/sabouaram/ahttp/errs"

const (
	CodeValidation = errs.MinPkgSession + iota + 1
	CodeNoResolver
	CodeBadBootstrap
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgSession) {
		panic("session: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgSession, func(code errs.CodeError) string {
		switch code {
		case CodeValidation:
			return "session: validation failed"
		case CodeNoResolver:
			return "session: unknown resolver class"
		case CodeBadBootstrap:
			return "session: https resolver requires resolverOptions.bootstrapIp"
		default:
			return errs.NullMessage
		}
	})
}
