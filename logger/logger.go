// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package logger provides connection-oriented log service, backed by
// logrus:
//
//	logger.Info.Println(Context, ...)
//	logger.Trace.Println(Context, ...)
//	logger.Warn.Println(Context, ...)
//	logger.Error.Println(Context, ...)
//
// The Context is optional and may be nil.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Context is the per-goroutine or per-exchange context a caller can
// thread through logging calls.
type Context interface {
	// Cid returns the current exchange/connection id.
	Cid() int
}

// Logger prints one leveled log line tagged with an optional Context.
type Logger interface {
	Println(ctx Context, a ...interface{})
}

type loggerPlus struct {
	log *logrus.Logger
}

// NewLoggerPlus wraps an already-configured logrus.Logger as a Logger.
func NewLoggerPlus(l *logrus.Logger) Logger {
	return &loggerPlus{log: l}
}

func (v *loggerPlus) Println(ctx Context, a ...interface{}) {
	entry := v.log.WithField("pid", os.Getpid())
	if ctx != nil {
		entry = entry.WithField("cid", ctx.Cid())
	}
	entry.Log(v.log.Level, a...)
}

// Info is the verbose level, very detailed, the lowest level, discarded
// by default.
var Info Logger

// I is an alias for Info.Println.
func I(ctx Context, a ...interface{}) {
	Info.Println(ctx, a...)
}

// Trace is the default level, something worth noting, to stdout.
var Trace Logger

// T is an alias for Trace.Println.
func T(ctx Context, a ...interface{}) {
	Trace.Println(ctx, a...)
}

// Warn is the warning level, dangerous information, to stderr.
var Warn Logger

// W is an alias for Warn.Println.
func W(ctx Context, a ...interface{}) {
	Warn.Println(ctx, a...)
}

// Error is the fatal-error level, to stderr.
var Error Logger

// E is an alias for Error.Println.
func E(ctx Context, a ...interface{}) {
	Error.Println(ctx, a...)
}

func newLevelLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

func init() {
	Info = NewLoggerPlus(newLevelLogger(io.Discard, logrus.DebugLevel))
	Trace = NewLoggerPlus(newLevelLogger(os.Stdout, logrus.InfoLevel))
	Warn = NewLoggerPlus(newLevelLogger(os.Stderr, logrus.WarnLevel))
	Error = NewLoggerPlus(newLevelLogger(os.Stderr, logrus.ErrorLevel))
}

// Switch redirects Trace, Warn, and Error to w; Info remains discarded.
// The caller is responsible for eventually closing w.
func Switch(w io.Writer) {
	Trace = NewLoggerPlus(newLevelLogger(w, logrus.InfoLevel))
	Warn = NewLoggerPlus(newLevelLogger(w, logrus.WarnLevel))
	Error = NewLoggerPlus(newLevelLogger(w, logrus.ErrorLevel))

	if c, ok := w.(io.Closer); ok {
		previousIO = c
	}
}

var previousIO io.Closer

// Close discards all log output until the next Switch, and closes the
// writer a prior Switch installed, if any.
func Close() error {
	Info = NewLoggerPlus(newLevelLogger(io.Discard, logrus.DebugLevel))
	Trace = NewLoggerPlus(newLevelLogger(io.Discard, logrus.InfoLevel))
	Warn = NewLoggerPlus(newLevelLogger(io.Discard, logrus.WarnLevel))
	Error = NewLoggerPlus(newLevelLogger(io.Discard, logrus.ErrorLevel))

	if previousIO != nil {
		err := previousIO.Close()
		previousIO = nil
		return err
	}
	return nil
}
