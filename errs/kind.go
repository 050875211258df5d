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

// Kind is the caller-facing error classification carried by ErrorResponse,
// per spec.md §7.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindResolve
	KindConnect
	KindProtocol
	KindTimeout
	KindHTTP
	KindPeerClosed
)

func (k Kind) String() string {
	switch k {
	case KindResolve:
		return "ResolveError"
	case KindConnect:
		return "ConnectError"
	case KindProtocol:
		return "ProtocolError"
	case KindTimeout:
		return "TimeoutError"
	case KindHTTP:
		return "HTTPError"
	case KindPeerClosed:
		return "PeerClosedError"
	default:
		return "UnknownError"
	}
}

// Retriable reports whether a request that failed with this kind may be
// safely retried on a fresh channel.
func (k Kind) Retriable() bool {
	switch k {
	case KindPeerClosed, KindConnect, KindResolve:
		return true
	default:
		return false
	}
}

const (
	CodeResolve CodeError = MinPkgKind + iota
	CodeConnect
	CodeProtocol
	CodeTimeout
	CodeHTTP
	CodePeerClosed
)

func init() {
	if ExistInMapMessage(CodeResolve) {
		panic("error code collision in package errs")
	}
	RegisterIdFctMessage(CodeResolve, func(code CodeError) string {
		switch code {
		case CodeResolve:
			return "dns resolution failed"
		case CodeConnect:
			return "connection failed"
		case CodeProtocol:
			return "protocol violation"
		case CodeTimeout:
			return "deadline exceeded"
		case CodeHTTP:
			return "http error status"
		case CodePeerClosed:
			return "peer closed connection"
		}
		return NullMessage
	})
}

// KindOf maps a CodeError allocated by this package to its Kind.
func KindOf(code CodeError) Kind {
	switch code {
	case CodeResolve:
		return KindResolve
	case CodeConnect:
		return KindConnect
	case CodeProtocol:
		return KindProtocol
	case CodeTimeout:
		return KindTimeout
	case CodeHTTP:
		return KindHTTP
	case CodePeerClosed:
		return KindPeerClosed
	default:
		return KindUnknown
	}
}

// NewKind is shorthand for New(code-for-kind, message, parent...).
func NewKind(k Kind, message string, parent ...error) Error {
	var code CodeError
	switch k {
	case KindResolve:
		code = CodeResolve
	case KindConnect:
		code = CodeConnect
	case KindProtocol:
		code = CodeProtocol
	case KindTimeout:
		code = CodeTimeout
	case KindHTTP:
		code = CodeHTTP
	case KindPeerClosed:
		code = CodePeerClosed
	}
	return New(code, message, parent...)
}
