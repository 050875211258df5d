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

// Package durationx wraps time.Duration with day notation ("5d23h15m13s")
// and multi-format marshaling, used by every *Options struct in ahttp so
// config files can express timeouts human-readably.
package durationx

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration behaves like time.Duration but parses/formats a leading day
// component, since time.ParseDuration has no notion of days.
type Duration time.Duration

// Time returns the underlying time.Duration.
func (d Duration) Time() time.Duration {
	return time.Duration(d)
}

// String formats the duration as "NdNhNmNs", omitting zero leading components.
func (d Duration) String() string {
	if d == 0 {
		return "0s"
	}

	neg := d < 0
	v := d
	if neg {
		v = -v
	}

	days := v / Duration(24*time.Hour)
	rest := time.Duration(v % Duration(24*time.Hour))

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	if days > 0 {
		sb.WriteString(strconv.FormatInt(int64(days), 10))
		sb.WriteByte('d')
	}
	sb.WriteString(rest.String())

	return sb.String()
}

// Parse parses a duration string with an optional leading "Nd" component
// followed by anything time.ParseDuration accepts (e.g. "5d23h15m13s",
// "30s", "2h").
func Parse(s string) (Duration, error) {
	if s == "" {
		return 0, nil
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var days int64
	if idx := strings.IndexByte(s, 'd'); idx >= 0 {
		n, err := strconv.ParseInt(s[:idx], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("durationx: invalid day component %q: %w", s[:idx], err)
		}
		days = n
		s = s[idx+1:]
	}

	var rest time.Duration
	if s != "" {
		r, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("durationx: invalid duration %q: %w", s, err)
		}
		rest = r
	}

	total := Duration(days)*Duration(24*time.Hour) + Duration(rest)
	if neg {
		total = -total
	}

	return total, nil
}

// MustParse is like Parse but panics on error — intended for package-level
// default values.
func MustParse(s string) Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime wraps a time.Duration value.
func FromTime(d time.Duration) Duration {
	return Duration(d)
}
