/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity, ordered from most severe (Panic, 0) to least
// (Debug, 5). Nil disables logging entirely.
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	NilLevel
)

func (l Level) String() string {
	switch l {
	case PanicLevel:
		return "Critical"
	case FatalLevel:
		return "Fatal"
	case ErrorLevel:
		return "Error"
	case WarnLevel:
		return "Warning"
	case InfoLevel:
		return "Info"
	case DebugLevel:
		return "Debug"
	case NilLevel:
		return ""
	default:
		return "unknown"
	}
}

// Logrus maps this Level onto the equivalent logrus.Level.
func (l Level) Logrus() logrus.Level {
	switch l {
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.Level(math.MaxUint32)
	}
}

// ParseLevel is case-insensitive and accepts either the full name ("Warning")
// or nothing at all, falling back to InfoLevel.
func ParseLevel(s string) Level {
	switch {
	case strings.EqualFold(s, PanicLevel.String()):
		return PanicLevel
	case strings.EqualFold(s, FatalLevel.String()):
		return FatalLevel
	case strings.EqualFold(s, ErrorLevel.String()):
		return ErrorLevel
	case strings.EqualFold(s, WarnLevel.String()):
		return WarnLevel
	case strings.EqualFold(s, InfoLevel.String()):
		return InfoLevel
	case strings.EqualFold(s, DebugLevel.String()):
		return DebugLevel
	default:
		return InfoLevel
	}
}
