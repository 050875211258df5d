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

// Package errs provides coded, hierarchical errors for the ahttp module.
//
// Every public operation that can fail returns an Error instead of a bare
// error: a numeric CodeError classification, an optional parent chain, and
// compatibility with errors.Is/errors.As via Unwrap.
package errs

import (
	"errors"
	"runtime"
	"strings"
)

// Error extends the standard error interface with a code and a parent chain.
type Error interface {
	error

	// Code returns this error's own classification code.
	Code() CodeError
	// IsCode reports whether this error's own code equals the given code.
	IsCode(code CodeError) bool
	// HasCode reports whether this error or any parent carries the given code.
	HasCode(code CodeError) bool

	// Add appends one or more parent errors (nil entries are ignored).
	Add(parent ...error) Error
	// HasParent reports whether this error has at least one parent.
	HasParent() bool
	// Parents returns the direct parent chain.
	Parents() []error

	// Unwrap exposes the parent chain to errors.Is/errors.As.
	Unwrap() []error
}

type ers struct {
	code   CodeError
	msg    string
	parent []error
	frame  runtime.Frame
}

func frameHere(skip int) runtime.Frame {
	pc := make([]uintptr, 1)
	if runtime.Callers(skip+2, pc) < 1 {
		return runtime.Frame{}
	}
	frames := runtime.CallersFrames(pc)
	f, _ := frames.Next()
	return f
}

// New creates a new Error with the given code, message, and optional parents.
func New(code CodeError, message string, parent ...error) Error {
	p := make([]error, 0, len(parent))
	for _, e := range parent {
		if e != nil {
			p = append(p, e)
		}
	}
	return &ers{code: code, msg: message, parent: p, frame: frameHere(1)}
}

// Make wraps a plain error into an Error, returning it unchanged if it
// already is one.
func Make(e error) Error {
	if e == nil {
		return nil
	}
	var err Error
	if errors.As(e, &err) {
		return err
	}
	return &ers{code: 0, msg: e.Error(), frame: frameHere(1)}
}

// Get returns e as an Error if it is one, nil otherwise.
func Get(e error) Error {
	var err Error
	if errors.As(e, &err) {
		return err
	}
	return nil
}

// Is reports whether e is (or wraps) an Error carrying the given code.
func Is(e error, code CodeError) bool {
	if err := Get(e); err != nil {
		return err.HasCode(code)
	}
	return false
}

func (e *ers) Error() string {
	msg := e.msg
	if msg == "" {
		msg = lookupMessage(e.code)
	}

	var sb strings.Builder
	sb.WriteString(msg)

	for _, p := range e.parent {
		sb.WriteString(": ")
		sb.WriteString(p.Error())
	}

	return sb.String()
}

func (e *ers) Code() CodeError { return e.code }

func (e *ers) IsCode(code CodeError) bool { return e.code == code }

func (e *ers) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parent {
		if Is(p, code) {
			return true
		}
	}
	return false
}

func (e *ers) Add(parent ...error) Error {
	for _, p := range parent {
		if p != nil {
			e.parent = append(e.parent, p)
		}
	}
	return e
}

func (e *ers) HasParent() bool { return len(e.parent) > 0 }

func (e *ers) Parents() []error { return e.parent }

func (e *ers) Unwrap() []error { return e.parent }

// GetFile and GetLine expose the captured call-site.
func (e *ers) GetFile() string { return e.frame.File }
func (e *ers) GetLine() int    { return e.frame.Line }
