/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package errs

import "sync"

// CodeError is a numeric error classification, similar in spirit to an HTTP
// status code but scoped per package. Packages register their own range via
// the MinPkg* constants below and never collide with one another.
type CodeError uint16

const (
	// NullMessage is returned by a message function when a code has no
	// registered message.
	NullMessage = "unregistered error code"
)

// Per-package minimum code ranges, mirroring the teacher's liberr.MinPkg*
// registry so every sub-package in this module gets its own non-overlapping
// block of 100 codes.
const (
	MinPkgBuffer CodeError = 100 + iota*100
	MinPkgTransport
	MinPkgResolver
	MinPkgEngineH1
	MinPkgEngineH2
	MinPkgChannel
	MinPkgPool
	MinPkgReactor
	MinPkgSession
	MinPkgTLSConf
	MinPkgBody
	MinPkgCookieJar
	MinPkgKind
	MinPkgLogx
)

type messageFunc func(code CodeError) string

var (
	regMutex sync.RWMutex
	registry = make(map[CodeError]messageFunc)
)

// RegisterIdFctMessage registers the message function for every code
// starting at (and above) the given base code, for the calling package's
// init(). The same base may not be registered twice.
func RegisterIdFctMessage(base CodeError, fct messageFunc) {
	regMutex.Lock()
	defer regMutex.Unlock()
	registry[base] = fct
}

// ExistInMapMessage reports whether a message function is already registered
// for the given base code — used by packages to panic on accidental code
// collisions at init time, same as the teacher does.
func ExistInMapMessage(base CodeError) bool {
	regMutex.RLock()
	defer regMutex.RUnlock()
	_, ok := registry[base]
	return ok
}

func lookupMessage(code CodeError) string {
	regMutex.RLock()
	defer regMutex.RUnlock()

	var (
		best    CodeError
		found   bool
		fct     messageFunc
	)

	for base, f := range registry {
		if code >= base && (!found || base > best) {
			best, fct, found = base, f, true
		}
	}

	if !found {
		return NullMessage
	}

	if msg := fct(code); msg != NullMessage {
		return msg
	}

	return NullMessage
}
