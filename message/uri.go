/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package message

import (
	"fmt"
	"net/url"
	"strconv"
)

// URI is the parsed form of a request target: scheme, host, port, path and
// query. It is intentionally narrower than net/url.URL — only what the pool
// key and the wire writer need.
type URI struct {
	Scheme string
	Host   string
	Port   int
	Path   string
	Query  string
}

// ParseURI parses raw into a URI, defaulting the port from the scheme
// (80 for http, 443 for https) when absent.
func ParseURI(raw string) (*URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("message: invalid uri %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("message: uri %q missing scheme or host", raw)
	}

	port := 0
	host := u.Hostname()
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("message: invalid port in %q: %w", raw, err)
		}
	} else if u.Scheme == "https" {
		port = 443
	} else {
		port = 80
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return &URI{
		Scheme: u.Scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Query:  u.RawQuery,
	}, nil
}

// PathWithQuery returns the request-target form used on the wire.
func (u *URI) PathWithQuery() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}

// HostPort returns "host:port", suitable for a transport dial address.
func (u *URI) HostPort() string {
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}

// PoolKey returns the (scheme, host, port) tuple used to key the pool.
func (u *URI) PoolKey() (string, string, int) {
	return u.Scheme, u.Host, u.Port
}
