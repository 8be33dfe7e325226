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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// TerminalHandler formats records the way a developer reads them on a
// console: level, timestamp, message, then key=value pairs. Color is
// used when the handler was constructed with useColor set (see
// DetectTerminalColor for a tty check).
type TerminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	level    slog.Level
	useColor bool
	attrs    []slog.Attr
}

// NewTerminalHandlerWithLevel returns a TerminalHandler writing to wr,
// filtering out records below lvl.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Level, useColor bool) *TerminalHandler {
	return &TerminalHandler{wr: wr, level: lvl, useColor: useColor}
}

// NewTerminalHandler returns a TerminalHandler writing to wr at LevelInfo,
// with color as the caller chose via useColor.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, LevelInfo, useColor)
}

// DetectTerminalColor reports whether wr looks like a color-capable tty,
// mirroring go-ethereum's own log-output auto-detection in cmd/utils.
func DetectTerminalColor(wr io.Writer) (io.Writer, bool) {
	if f, ok := wr.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return colorable.NewColorable(f), true
		}
	}
	return wr, false
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	lvl := LevelString(r.Level)
	if h.useColor {
		fmt.Fprintf(&b, "%s[%s] %s", colorForLevel(r.Level), r.Time.Format("01-02|15:04:05.000"), r.Message)
	} else {
		fmt.Fprintf(&b, "%s [%s] %s", lvl, r.Time.Format("01-02|15:04:05.000"), r.Message)
	}

	pairs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		pairs = append(pairs, formatAttr(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		pairs = append(pairs, formatAttr(a))
		return true
	})
	if len(pairs) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(pairs, " "))
	}
	if h.useColor {
		b.WriteString(colorReset)
	}
	b.WriteString("\n")
	_, err := io.WriteString(h.wr, b.String())
	return err
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *TerminalHandler) WithGroup(_ string) slog.Handler { return h }

func formatAttr(a slog.Attr) string {
	v := a.Value.String()
	if needsQuoting(v) {
		return fmt.Sprintf("%s=%q", a.Key, v)
	}
	return fmt.Sprintf("%s=%s", a.Key, v)
}

const (
	colorReset = "\x1b[0m"
)

func colorForLevel(l slog.Level) string {
	switch {
	case l >= LevelCrit:
		return "\x1b[35m" + LevelString(l) + colorReset + " "
	case l >= LevelError:
		return "\x1b[31m" + LevelString(l) + colorReset + " "
	case l >= LevelWarn:
		return "\x1b[33m" + LevelString(l) + colorReset + " "
	case l >= LevelInfo:
		return "\x1b[32m" + LevelString(l) + colorReset + " "
	default:
		return "\x1b[36m" + LevelString(l) + colorReset + " "
	}
}

// JSONHandler returns a slog.Handler emitting one JSON object per record,
// for log output that is read by another process instead of a terminal.
// The mevcfg CLI does not use it.
func JSONHandler(wr io.Writer) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: LevelTrace})
}

// vmodRule is one "pattern=level" rule parsed out of a -vmodule spec.
type vmodRule struct {
	pattern string
	level   slog.Level
}

// GlogHandler wraps another handler, adding glog-style per-file verbosity
// overrides (-vmodule) on top of a single global verbosity threshold, the
// same two-axis filtering go-ethereum's GlogHandler supports.
type GlogHandler struct {
	mu        sync.RWMutex
	next      slog.Handler
	verbosity slog.Level
	rules     []vmodRule
}

// NewGlogHandler wraps next.
func NewGlogHandler(next slog.Handler) *GlogHandler {
	return &GlogHandler{next: next, verbosity: LevelInfo}
}

// Verbosity sets the global verbosity threshold.
func (g *GlogHandler) Verbosity(lvl slog.Level) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verbosity = lvl
}

// Vmodule parses a comma-separated "pattern=level" list, where level is
// a glog-style integer 0-5 (5 being most verbose, enabling Trace).
func (g *GlogHandler) Vmodule(spec string) error {
	var rules []vmodRule
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("invalid vmodule rule %q", part)
		}
		var v int
		if _, err := fmt.Sscanf(kv[1], "%d", &v); err != nil {
			return fmt.Errorf("invalid vmodule level %q: %w", kv[1], err)
		}
		rules = append(rules, vmodRule{pattern: kv[0], level: verbosityToLevel(v)})
	}
	g.mu.Lock()
	g.rules = rules
	g.mu.Unlock()
	return nil
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return LevelCrit
	case v == 1:
		return LevelError
	case v == 2:
		return LevelWarn
	case v == 3:
		return LevelInfo
	case v == 4:
		return LevelDebug
	default:
		return LevelTrace
	}
}

func (g *GlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // decision deferred to Handle, which knows the call site
}

func (g *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	g.mu.RLock()
	threshold := g.verbosity
	rules := g.rules
	g.mu.RUnlock()

	if len(rules) > 0 && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		base := filepath.Base(frame.File)
		for _, rule := range rules {
			if ok, _ := filepath.Match(rule.pattern, base); ok {
				threshold = rule.level
				break
			}
		}
	}
	if r.Level < threshold {
		return nil
	}
	return g.next.Handle(ctx, r)
}

func (g *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GlogHandler{next: g.next.WithAttrs(attrs), verbosity: g.verbosity, rules: g.rules}
}

func (g *GlogHandler) WithGroup(name string) slog.Handler {
	return &GlogHandler{next: g.next.WithGroup(name), verbosity: g.verbosity, rules: g.rules}
}

// DiscardHandler returns a handler that drops every record, used by tests
// that want a Logger but no output.
func DiscardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}
