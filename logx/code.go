/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import "github.com/sabouaram/ahttp/errs"

const (
	CodeValidation = errs.MinPkgLogx + iota + 1
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgLogx) {
		panic("logx: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgLogx, func(code errs.CodeError) string {
		switch code {
		case CodeValidation:
			return "logx: validation failed"
		default:
			return errs.NullMessage
		}
	})
}
