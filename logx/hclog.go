/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import (
	"io"
	"log"

	"github.com/hashicorp/go-hclog"
)

// hclogArgsKey stores the implied args hclog.Logger.With attaches.
const hclogArgsKey = "hclog.args"

// hclogAdapter lets golang.org/x/net/http2's internal debug logging (and any
// other hclog.Logger consumer) write through a Logger.
type hclogAdapter struct {
	l Logger
}

var _ hclog.Logger = (*hclogAdapter)(nil)

// HCLog wraps l as an hclog.Logger, for libraries in the dependency graph
// that only know how to log through that interface.
func HCLog(l Logger) hclog.Logger {
	return &hclogAdapter{l: l}
}

func (a *hclogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Off, hclog.NoLevel:
		return
	case hclog.Trace, hclog.Debug:
		a.l.Debug(msg, nil, args...)
	case hclog.Info:
		a.l.Info(msg, nil, args...)
	case hclog.Warn:
		a.l.Warning(msg, nil, args...)
	case hclog.Error:
		a.l.Error(msg, nil, args...)
	}
}

func (a *hclogAdapter) Trace(msg string, args ...interface{}) { a.l.Debug(msg, nil, args...) }
func (a *hclogAdapter) Debug(msg string, args ...interface{}) { a.l.Debug(msg, nil, args...) }
func (a *hclogAdapter) Info(msg string, args ...interface{})  { a.l.Info(msg, nil, args...) }
func (a *hclogAdapter) Warn(msg string, args ...interface{})  { a.l.Warning(msg, nil, args...) }
func (a *hclogAdapter) Error(msg string, args ...interface{}) { a.l.Error(msg, nil, args...) }

func (a *hclogAdapter) IsTrace() bool { return a.l.GetLevel() >= DebugLevel }
func (a *hclogAdapter) IsDebug() bool { return a.l.GetLevel() >= DebugLevel }
func (a *hclogAdapter) IsInfo() bool  { return a.l.GetLevel() >= InfoLevel }
func (a *hclogAdapter) IsWarn() bool  { return a.l.GetLevel() >= WarnLevel }
func (a *hclogAdapter) IsError() bool { return a.l.GetLevel() >= ErrorLevel }

func (a *hclogAdapter) ImpliedArgs() []interface{} {
	fields := a.l.GetFields().Logrus()
	if v, ok := fields[hclogArgsKey]; ok {
		if s, ok := v.([]interface{}); ok {
			return s
		}
	}
	return nil
}

func (a *hclogAdapter) With(args ...interface{}) hclog.Logger {
	a.l.SetFields(a.l.GetFields().Add(hclogArgsKey, args))
	return a
}

func (a *hclogAdapter) Name() string { return "" }

func (a *hclogAdapter) Named(name string) hclog.Logger     { return a }
func (a *hclogAdapter) ResetNamed(name string) hclog.Logger { return a }

func (a *hclogAdapter) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Off, hclog.NoLevel:
		a.l.SetLevel(NilLevel)
	case hclog.Trace, hclog.Debug:
		a.l.SetLevel(DebugLevel)
	case hclog.Info:
		a.l.SetLevel(InfoLevel)
	case hclog.Warn:
		a.l.SetLevel(WarnLevel)
	case hclog.Error:
		a.l.SetLevel(ErrorLevel)
	}
}

func (a *hclogAdapter) GetLevel() hclog.Level {
	switch a.l.GetLevel() {
	case NilLevel:
		return hclog.Off
	case DebugLevel:
		return hclog.Debug
	case InfoLevel:
		return hclog.Info
	case WarnLevel:
		return hclog.Warn
	case ErrorLevel, FatalLevel, PanicLevel:
		return hclog.Error
	default:
		return hclog.Info
	}
}

func (a *hclogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(a.l, "", 0)
}

func (a *hclogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return a.l
}
