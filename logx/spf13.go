/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import (
	"io"

	jww "github.com/spf13/jwalterweatherman"
)

// SetSPF13Level bridges jwalterweatherman (the logging library behind
// spf13/cobra and spf13/viper, both used by cmd/ahttp-fetch) onto l, so a
// single Level controls both.
func SetSPF13Level(l Logger, lvl Level) {
	if lvl == NilLevel {
		jww.SetStdoutOutput(io.Discard)
		jww.SetLogOutput(io.Discard)
		jww.SetLogThreshold(jww.LevelCritical)
		return
	}

	jww.SetStdoutOutput(l)
	jww.SetLogOutput(l)

	switch lvl {
	case DebugLevel:
		jww.SetLogThreshold(jww.LevelTrace)
	case InfoLevel:
		jww.SetLogThreshold(jww.LevelInfo)
	case WarnLevel:
		jww.SetLogThreshold(jww.LevelWarn)
	case ErrorLevel:
		jww.SetLogThreshold(jww.LevelError)
	case FatalLevel, PanicLevel:
		jww.SetLogThreshold(jww.LevelCritical)
	}
}
