// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log renders transfer progress for humans, mirroring every line to
// zerolog.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/status"
)

// 🎨 Display configuration
const (
	entryIndent = 4  // spaces to indent item lines
	nameWidth   = 45 // width of the destination column
	typeWidth   = 10 // width of the entry type column
	statusWidth = 10 // width of the status column
)

// 📝 Logger writes colored item lines and messages to a console
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

var _ status.Sink = (*Logger)(nil)

func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

type contextKey struct{}

// FromContext panics when no Logger was stored, it is a programming error
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func symbolFor(st status.Status) (rune, color.Attribute) {
	switch st {
	case status.StatusCopied, status.StatusCreated, status.StatusLinked:
		return '✓', color.FgGreen
	case status.StatusRemoved:
		return '✗', color.FgYellow
	case status.StatusFailed:
		return '✗', color.FgRed
	case status.StatusSkipped:
		return '-', color.FgYellow
	default:
		return '•', color.FgCyan
	}
}

func typeColor(kind string) color.Attribute {
	switch kind {
	case "directory":
		return color.FgBlue
	case "symlink":
		return color.FgMagenta
	default:
		return color.FgWhite
	}
}

func (l *Logger) formatEntry(e status.Entry) string {
	symbol, symbolColor := symbolFor(e.Status)

	line := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", entryIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, e.Destination),
		color.New(typeColor(e.Type)).Sprint(fmt.Sprintf("%-*s", typeWidth, e.Type)),
		fmt.Sprintf("%-*s", statusWidth, e.Status))

	if e.Err != nil {
		line += color.New(color.FgRed).Sprint(e.Err.Error())
	}
	return line
}

// 📄 Track prints one item line
func (l *Logger) Track(ctx context.Context, e status.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatEntry(e))

	l.zlog.Debug().
		Str("source", e.Source).
		Str("destination", e.Destination).
		Str("type", e.Type).
		Stringer("status", e.Status).
		AnErr("cause", e.Err).
		Msg("item")
}

// 📊 Summary prints the closing table of a run
func (l *Logger) Summary(s status.Summary, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console)
	for _, st := range s.Statuses() {
		symbol, symbolColor := symbolFor(st)
		fmt.Fprintf(l.console, "%*s%s %-*s %d\n",
			entryIndent, "",
			color.New(symbolColor).Sprint(string(symbol)),
			typeWidth, st,
			s.Count(st))
	}
	fmt.Fprintf(l.console, "%*s%s\n", entryIndent, "",
		color.New(color.Faint).Sprintf("%d items, %d changed in %s", s.Total, s.Changed(), elapsed.Round(time.Millisecond)))

	l.zlog.Info().
		Int("items", s.Total).
		Int("changed", s.Changed()).
		Int("failed", s.Failed()).
		Dur("elapsed", elapsed).
		Msg("run summary")
}

func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("treesync")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}
