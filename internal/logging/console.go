package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// consoleHandler writes "ts LEVEL component: msg key=value" lines. The
// key=value tail is rendered by slog's text handler, so quoting and groups
// follow its rules and redaction runs through the same ReplaceAttr hook as
// the JSON format.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	opts      slog.HandlerOptions
	addSource bool
	component string
	chain     []func(slog.Handler) slog.Handler
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool, redact func([]string, slog.Attr) slog.Attr) slog.Handler {
	return &consoleHandler{
		mu:        &sync.Mutex{},
		w:         w,
		addSource: addSource,
		opts: slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if len(groups) == 0 {
					switch attr.Key {
					case slog.TimeKey, slog.LevelKey, slog.MessageKey, slog.SourceKey:
						return slog.Attr{}
					}
				}
				if redact != nil {
					return redact(groups, attr)
				}
				return attr
			},
		},
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *consoleHandler) Handle(ctx context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(record.Level.String())
	buf.WriteByte(' ')
	if h.component != "" {
		buf.WriteString(h.component)
		buf.WriteString(": ")
	}
	buf.WriteString(record.Message)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}

	var tail bytes.Buffer
	var inner slog.Handler = slog.NewTextHandler(&tail, &h.opts)
	for _, wrap := range h.chain {
		inner = wrap(inner)
	}
	if err := inner.Handle(ctx, record); err != nil {
		return err
	}
	if tail.Len() > 1 {
		buf.WriteByte(' ')
	}
	buf.Write(tail.Bytes())

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	kept := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == FieldComponent && len(h.chain) == 0 {
			clone.component = attr.Value.String()
			continue
		}
		kept = append(kept, attr)
	}
	if len(kept) > 0 {
		clone.chain = append(h.chain[:len(h.chain):len(h.chain)], func(next slog.Handler) slog.Handler {
			return next.WithAttrs(kept)
		})
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.chain = append(h.chain[:len(h.chain):len(h.chain)], func(next slog.Handler) slog.Handler {
		return next.WithGroup(name)
	})
	return &clone
}
