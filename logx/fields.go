/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a thread-safe bag of structured key/value pairs attached to a
// logger or a single entry.
type Fields struct {
	mu sync.RWMutex
	m  map[string]interface{}
}

// NewFields returns an empty Fields set.
func NewFields() *Fields {
	return &Fields{m: make(map[string]interface{})}
}

// Add inserts or overwrites key and returns the receiver for chaining.
func (f *Fields) Add(key string, val interface{}) *Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		f.m = make(map[string]interface{})
	}
	f.m[key] = val
	return f
}

// Clone returns an independent copy.
func (f *Fields) Clone() *Fields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := NewFields()
	for k, v := range f.m {
		out.m[k] = v
	}
	return out
}

// Logrus converts to the map shape logrus.Entry.WithFields expects.
func (f *Fields) Logrus() logrus.Fields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(logrus.Fields, len(f.m))
	for k, v := range f.m {
		out[k] = v
	}
	return out
}
