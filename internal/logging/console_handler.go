package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ConsoleHandler writes records as
//
//	2026-01-02T15:04:05Z [info] component: message key=value
//
// one record per line, for reading alongside the backend's own stderr.
type ConsoleHandler struct {
	opts       slog.HandlerOptions
	out        io.Writer
	timeFormat string

	mu    sync.Mutex
	attrs []slog.Attr
}

func NewConsoleHandler(out io.Writer, opts *slog.HandlerOptions, timeFormat string) *ConsoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return &ConsoleHandler{out: out, opts: *opts, timeFormat: timeFormat}
}

func (handler *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if handler.opts.Level != nil {
		minLevel = handler.opts.Level.Level()
	}
	return level >= minLevel
}

func (handler *ConsoleHandler) Handle(_ context.Context, record slog.Record) error {
	buf := make([]byte, 0, 256)

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	buf = append(buf, when.Format(handler.timeFormat)...)
	buf = append(buf, " ["...)
	buf = append(buf, strings.ToLower(record.Level.String())...)
	buf = append(buf, "] "...)

	// The component attr prefixes the message instead of trailing it.
	var component string
	preset := handler.snapshotAttrs()
	var inline []slog.Attr
	record.Attrs(func(attr slog.Attr) bool {
		inline = append(inline, attr)
		return true
	})
	for _, attr := range append(preset, inline...) {
		if attr.Key == "component" {
			component = attr.Value.String()
		}
	}

	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, record.Message...)

	for _, attr := range append(preset, inline...) {
		if attr.Key == "component" {
			continue
		}
		buf = append(buf, ' ')
		buf = append(buf, attr.Key...)
		buf = append(buf, '=')
		buf = appendQuoted(buf, attr.Value.String())
	}
	buf = append(buf, '\n')

	handler.mu.Lock()
	defer handler.mu.Unlock()
	_, err := handler.out.Write(buf)
	return err
}

func (handler *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &ConsoleHandler{
		out:        handler.out,
		opts:       handler.opts,
		timeFormat: handler.timeFormat,
	}
	next.attrs = append(append([]slog.Attr{}, handler.snapshotAttrs()...), attrs...)
	return next
}

func (handler *ConsoleHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened; this handler is for short diagnostic lines.
	return handler
}

func (handler *ConsoleHandler) snapshotAttrs() []slog.Attr {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return append([]slog.Attr{}, handler.attrs...)
}

func appendQuoted(buf []byte, value string) []byte {
	if strings.ContainsAny(value, " \t\n\"") {
		return append(buf, fmt.Sprintf("%q", value)...)
	}
	return append(buf, value...)
}
