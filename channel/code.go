/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package channel

import "github.com/sabouaram/ahttp/errs"

const (
	CodeClosed = errs.MinPkgChannel + iota + 1
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgChannel) {
		panic("channel: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgChannel, func(code errs.CodeError) string {
		switch code {
		case CodeClosed:
			return "channel: send on closed channel"
		default:
			return errs.NullMessage
		}
	})
}
