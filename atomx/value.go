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

// Package atomx provides a type-safe, generic wrapper over sync/atomic.Value
// for lock-free shared state. In ahttp it backs the resolver's address
// cache snapshot.
package atomx

import "sync/atomic"

type box[T any] struct {
	v T
}

// Value is a type-safe atomic container for T. The zero Value is not usable;
// construct one with New.
type Value[T any] struct {
	av atomic.Value
	def T
}

// New returns a Value[T] whose Load returns def until the first Store.
func New[T any](def T) *Value[T] {
	return &Value[T]{def: def}
}

// Load returns the current value, or the configured default if never stored.
func (v *Value[T]) Load() T {
	if i := v.av.Load(); i == nil {
		return v.def
	} else if b, ok := i.(box[T]); ok {
		return b.v
	}
	return v.def
}

// Store sets the value atomically.
func (v *Value[T]) Store(val T) {
	v.av.Store(box[T]{v: val})
}

// Swap atomically stores val and returns the previous value.
func (v *Value[T]) Swap(val T) (old T) {
	old = v.Load()
	prev := v.av.Swap(box[T]{v: val})
	if b, ok := prev.(box[T]); ok {
		old = b.v
	}
	return old
}

// CompareAndSwap atomically compares the current value (by way of the
// boxed comparable wrapper) and, on match, stores val. T must be comparable
// for this to behave usefully; non-comparable T always fails the swap.
func (v *Value[T]) CompareAndSwap(old, val T) bool {
	return v.av.CompareAndSwap(box[T]{v: old}, box[T]{v: val})
}
