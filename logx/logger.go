/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package logx is the structured logging façade every other package logs
// through: level-gated Debug/Info/Warning/Error/Fatal/Panic entries carrying
// a Fields bag, backed by logrus, with adapters bridging go-hclog and
// jwalterweatherman consumers (golang.org/x/net/http2's internal debug
// logging and spf13/cobra+viper respectively) onto the same sink.
package logx

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sabouaram/ahttp/errs"
)

// Logger is the minimal structured-logging surface this module logs
// through. It extends io.Writer so it can itself be handed to other
// libraries (golog.StandardLogger, jww) as their output sink.
type Logger interface {
	io.Writer

	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(f *Fields)
	GetFields() *Fields

	SetOptions(o Options) errs.Error
	GetOptions() Options

	Debug(message string, fields *Fields, args ...interface{})
	Info(message string, fields *Fields, args ...interface{})
	Warning(message string, fields *Fields, args ...interface{})
	Error(message string, fields *Fields, args ...interface{})
	Fatal(message string, fields *Fields, args ...interface{})
	Panic(message string, fields *Fields, args ...interface{})

	// Access logs one HTTP-style access-log line, used by the session
	// facade after each completed request.
	Access(method, target string, status int, bytes int64, err error)
}

// FuncLog returns the Logger a caller wants used, evaluated lazily so a
// Session can be constructed before its Logger is fully configured (or
// swapped out later without reconstructing the Session).
type FuncLog func() Logger

type logger struct {
	mu    sync.RWMutex
	level Level
	opts  Options
	flds  *Fields
	l     *logrus.Logger
}

// New returns a Logger writing to stderr at InfoLevel.
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(InfoLevel.Logrus())

	return &logger{
		level: InfoLevel,
		opts:  Default(),
		flds:  NewFields(),
		l:     l,
	}
}

func (g *logger) Write(p []byte) (int, error) {
	g.mu.RLock()
	lvl := g.level
	g.mu.RUnlock()
	if lvl == NilLevel {
		return len(p), nil
	}
	g.l.Log(lvl.Logrus(), string(p))
	return len(p), nil
}

func (g *logger) SetLevel(lvl Level) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setLevelLocked(lvl)
}

// setLevelLocked assumes g.mu is already held.
func (g *logger) setLevelLocked(lvl Level) {
	g.level = lvl
	if lvl == NilLevel {
		g.l.SetOutput(io.Discard)
	} else {
		g.l.SetOutput(os.Stderr)
		g.l.SetLevel(lvl.Logrus())
	}
}

func (g *logger) GetLevel() Level {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

func (g *logger) SetFields(f *Fields) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flds = f
}

func (g *logger) GetFields() *Fields {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.flds == nil {
		return NewFields()
	}
	return g.flds
}

func (g *logger) SetOptions(o Options) errs.Error {
	if err := o.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.opts = o
	g.setLevelLocked(ParseLevel(o.Level))
	g.l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    o.DisableColor,
		DisableTimestamp: o.DisableTimestamp,
	})
	return nil
}

func (g *logger) GetOptions() Options {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opts
}

func (g *logger) entry(extra *Fields) *logrus.Entry {
	f := g.GetFields().Clone()
	if extra != nil {
		for k, v := range extra.Logrus() {
			f.Add(k, v)
		}
	}
	return g.l.WithFields(f.Logrus())
}

func (g *logger) Debug(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Debugf(message, args...)
}

func (g *logger) Info(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Infof(message, args...)
}

func (g *logger) Warning(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Warnf(message, args...)
}

func (g *logger) Error(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Errorf(message, args...)
}

func (g *logger) Fatal(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Fatalf(message, args...)
}

func (g *logger) Panic(message string, fields *Fields, args ...interface{}) {
	g.entry(fields).Panicf(message, args...)
}

func (g *logger) Access(method, target string, status int, bytes int64, err error) {
	if !g.GetOptions().EnableAccessLog {
		return
	}
	f := NewFields().Add("method", method).Add("target", target).Add("status", status).Add("bytes", bytes)
	if err != nil {
		f.Add("error", err.Error())
		g.entry(f).Warn("request completed with error")
		return
	}
	g.entry(f).Info("request completed")
}
