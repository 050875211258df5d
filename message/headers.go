/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package message defines the Request/Response/ErrorResponse data model
// shared by both protocol engines and the session facade.
package message

import "strings"

// Headers is an ordered, case-insensitive header map. Later writes to the
// same field name override the previous value but preserve its original
// position, matching how net/textproto.MIMEHeader is conventionally used
// but keeping insertion order for wire serialization.
type Headers struct {
	order []string
	vals  map[string][]string
}

// NewHeaders returns an empty Headers map.
func NewHeaders() *Headers {
	return &Headers{vals: make(map[string][]string)}
}

func canon(name string) string {
	return strings.ToLower(name)
}

// Set replaces all values for name.
func (h *Headers) Set(name, value string) {
	k := canon(name)
	if _, ok := h.vals[k]; !ok {
		h.order = append(h.order, k)
	}
	h.vals[k] = []string{value}
}

// Add appends a value for name without clearing existing ones.
func (h *Headers) Add(name, value string) {
	k := canon(name)
	if _, ok := h.vals[k]; !ok {
		h.order = append(h.order, k)
	}
	h.vals[k] = append(h.vals[k], value)
}

// Get returns the first value for name, or "" if absent.
func (h *Headers) Get(name string) string {
	v := h.vals[canon(name)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns every value for name, in add order.
func (h *Headers) Values(name string) []string {
	return h.vals[canon(name)]
}

// Has reports whether name was set at least once.
func (h *Headers) Has(name string) bool {
	_, ok := h.vals[canon(name)]
	return ok
}

// Del removes name entirely.
func (h *Headers) Del(name string) {
	k := canon(name)
	delete(h.vals, k)
	for i, o := range h.order {
		if o == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Range calls fn for every header name in insertion order, once per value.
func (h *Headers) Range(fn func(name, value string)) {
	for _, k := range h.order {
		for _, v := range h.vals[k] {
			fn(k, v)
		}
	}
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	h.Range(func(name, value string) { c.Add(name, value) })
	return c
}
