// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log implements the structured, leveled logging used throughout
// this module, the same slog-backed shape as go-ethereum's own log
// package: a Logger interface wrapping an slog.Handler, a GlogHandler for
// per-file verbosity overrides, and Terminal/JSON handlers (the mevcfg
// CLI logs through the terminal handler).
package log

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// Logger writes structured, leveled key/value log records.
type Logger interface {
	// With returns a new Logger with the given context attached.
	With(ctx ...any) Logger
	// New is an alias for With.
	New(ctx ...any) Logger

	Log(level slog.Level, msg string, ctx ...any)

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	// Handler returns the underlying handler.
	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a Logger backed by the given handler.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) Handler() slog.Handler { return l.inner.Handler() }

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: slog.New(l.inner.Handler().WithAttrs(argsToAttrs(ctx)))}
}

func (l *logger) New(ctx ...any) Logger { return l.With(ctx...) }

func (l *logger) write(level slog.Level, msg string, ctx []any) {
	if !l.inner.Handler().Enabled(context.Background(), level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, callerPC())
	r.Add(ctx...)
	_ = l.inner.Handler().Handle(context.Background(), r)
}

func (l *logger) Log(level slog.Level, msg string, ctx ...any) { l.write(level, msg, ctx) }
func (l *logger) Trace(msg string, ctx ...any)                 { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any)                 { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)                  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)                  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any)                 { l.write(LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...any)                  { l.write(LevelCrit, msg, ctx) }

func callerPC() uintptr {
	var pcs [1]uintptr
	runtime.Callers(4, pcs[:])
	return pcs[0]
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

var defaultLogger = newDefaultLogger()

func newDefaultLogger() Logger {
	wr, useColor := DetectTerminalColor(os.Stderr)
	return NewLogger(NewTerminalHandlerWithLevel(wr, LevelInfo, useColor))
}

// Root returns the default logger.
func Root() Logger { return defaultLogger }

// SetDefault sets l as the default logger, used by the package-level
// Trace/Debug/.../Crit helpers below.
func SetDefault(l Logger) { defaultLogger = l }

// New creates a new logger rooted at the default logger with context ctx.
func New(ctx ...any) Logger {
	if len(ctx) == 0 {
		return defaultLogger
	}
	return defaultLogger.With(ctx...)
}

func Trace(msg string, ctx ...any) { defaultLogger.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { defaultLogger.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { defaultLogger.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { defaultLogger.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { defaultLogger.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { defaultLogger.Crit(msg, ctx...) }
