// Package logger builds the slog loggers used by the command line tools. The
// default handler writes slog text records and colors them by level, with
// retrieval milestones highlighted so they stand out in a busy terminal.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// milestones are Info messages printed in green.
var milestones = []string{"early stop", "fallback", "retrieval finished", "server listening"}

// Options configures NewLogger.
type Options struct {
	Level slog.Leveler
	// Format is "text" (default) or "json".
	Format string
	// NoColor disables ANSI colors for text output.
	NoColor bool
}

// NewDefaultLogger returns a colored text logger on stderr. Colors are
// disabled when NO_COLOR is set.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(os.Stderr, Options{Level: level, NoColor: os.Getenv("NO_COLOR") != ""})
}

// NewLogger returns a logger writing to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	if opts.NoColor {
		return slog.New(slog.NewTextHandler(w, hopts))
	}
	return slog.New(NewColorHandler(w, hopts))
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// ColorHandler formats records like slog.TextHandler and wraps each line in
// an ANSI color chosen from the level and message.
type ColorHandler struct {
	out   io.Writer
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
}

// NewColorHandler creates a ColorHandler writing to w.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	buf := &bytes.Buffer{}
	return &ColorHandler{
		out:   w,
		mu:    &sync.Mutex{},
		buf:   buf,
		inner: slog.NewTextHandler(buf, opts),
	}
}

// Enabled implements slog.Handler
func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := bytes.TrimRight(h.buf.Bytes(), "\n")

	color := colorFor(r)
	if color == "" {
		_, err := fmt.Fprintf(h.out, "%s\n", line)
		return err
	}
	_, err := fmt.Fprintf(h.out, "%s%s%s\n", color, line, colorReset)
	return err
}

// WithAttrs implements slog.Handler
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{out: h.out, mu: h.mu, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{out: h.out, mu: h.mu, buf: h.buf, inner: h.inner.WithGroup(name)}
}

func colorFor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case r.Level >= slog.LevelInfo:
		msg := strings.ToLower(r.Message)
		for _, m := range milestones {
			if strings.Contains(msg, m) {
				return colorGreen
			}
		}
	}
	return ""
}
