/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package cookiejar adapts the standard library's net/http/cookiejar.Jar
// onto message.Request/message.Response, the same "minimal interface over
// a stdlib primitive" idiom httpcli.HttpClient applies to *http.Client.
package cookiejar

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/sabouaram/ahttp/message"
)

// Jar stores cookies across requests, scoped per Session the way a browser
// cookie store is scoped per profile.
type Jar struct {
	jar *cookiejar.Jar
}

// New returns a Jar using the public suffix list to decide which domains
// may set cookies for which others, matching what a browser does and what
// an empty cookiejar.Options (no PublicSuffixList) does not.
func New() (*Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{jar: j}, nil
}

func toURL(uri *message.URI) *url.URL {
	return &url.URL{Scheme: uri.Scheme, Host: uri.HostPort(), Path: uri.Path, RawQuery: uri.Query}
}

// Apply sets req's Cookie header from every cookie stored for uri.
func (j *Jar) Apply(uri *message.URI, req *message.Request) {
	cookies := j.jar.Cookies(toURL(uri))
	for _, c := range cookies {
		req.Headers.Add("Cookie", c.String())
	}
}

// Observe stores every Set-Cookie header on resp against uri.
func (j *Jar) Observe(uri *message.URI, resp *message.Response) {
	values := resp.Headers.Values("Set-Cookie")
	if len(values) == 0 {
		return
	}

	// http.Response.Cookies() is the stdlib's only exported Set-Cookie
	// parser in this Go version; a throwaway Response just carries the
	// header through it.
	cookies := (&http.Response{Header: http.Header{"Set-Cookie": values}}).Cookies()
	if len(cookies) > 0 {
		j.jar.SetCookies(toURL(uri), cookies)
	}
}
