/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package tlsconf

import "github.com/sabouaram/ahttp/errs"

const (
	CodeValidation = errs.MinPkgTLSConf + iota + 1
	CodeParseCA
	CodeParseCert
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgTLSConf) {
		panic("tlsconf: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgTLSConf, func(code errs.CodeError) string {
		switch code {
		case CodeValidation:
			return "tls configuration failed validation"
		case CodeParseCA:
			return "could not parse root CA certificate"
		case CodeParseCert:
			return "could not parse certificate pair"
		default:
			return errs.NullMessage
		}
	})
}
