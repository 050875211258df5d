/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package resolver implements the asynchronous DNS resolution used by the
// connection pool to turn a hostname into addresses before a transport
// dials, in three interchangeable forms: a hand-rolled non-blocking UDP
// client (native), a delegation to the OS resolver scheduled off the
// reactor (system), and DNS-over-HTTPS (https).
package resolver

import (
	"net"
	"time"

	"github.com/sabouaram/ahttp/errs"
)

const (
	CodeResolveFailed = errs.MinPkgResolver + iota + 1
	CodeNameserverUnreachable
	CodeBadBootstrap
)

func init() {
	if errs.ExistInMapMessage(errs.MinPkgResolver) {
		panic("resolver: error code base already registered")
	}
	errs.RegisterIdFctMessage(errs.MinPkgResolver, func(code errs.CodeError) string {
		switch code {
		case CodeResolveFailed:
			return "resolver: name resolution failed"
		case CodeNameserverUnreachable:
			return "resolver: no reachable nameserver"
		case CodeBadBootstrap:
			return "resolver: https resolver requires a literal bootstrap IP"
		default:
			return errs.NullMessage
		}
	})
}

// Query is a pending resolution request.
type Query struct {
	Host        string
	RecordTypes []uint16
	Deadline    time.Time

	attemptsLeft int
	waiter       chan Result
}

// Result is the outcome of a resolution: either a non-empty address list or
// an error.
type Result struct {
	Addrs []net.IP
	Err   errs.Error
}

// DefaultRecordTypes is the default lookup order: A before AAAA.
var DefaultRecordTypes = []uint16{TypeA, TypeAAAA}

// DefaultTimeouts is the per-host retry timeout ladder, in seconds elapsed
// before the query is considered lost and retried (or finally failed).
var DefaultTimeouts = []time.Duration{5 * time.Second}

// Resolver is the interface the pool drives to turn a hostname into
// addresses. Resolve is non-blocking: it queues the query and returns
// immediately; the caller receives the answer on the returned channel once
// the reactor has driven the resolver to completion.
type Resolver interface {
	// Resolve queues host for resolution and returns a channel that
	// receives exactly one Result.
	Resolve(host string, recordTypes []uint16, deadline time.Time) <-chan Result

	// Tick advances retry bookkeeping by elapsed and returns true if the
	// resolver has outstanding work (participates in reactor readiness).
	Tick(elapsed time.Duration) bool

	// Close releases any resources (sockets, goroutines) held by the
	// resolver.
	Close() error
}
