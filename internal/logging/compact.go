package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

var (
	offsetColor = color.New(color.Faint)
	shellColor  = color.New(color.FgBlue)
	dirColor    = color.New(color.FgBlue, color.Faint)
	levelColors = map[slog.Level]*color.Color{
		slog.LevelDebug: color.New(color.FgMagenta),
		slog.LevelInfo:  color.New(color.FgCyan),
		slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
		slog.LevelError: color.New(color.FgRed, color.Bold),
	}
)

// CompactHandler writes one short line per record:
//
//	T+0.125s INFO  Running action. task=foo
//	T+0.126s $ cc -c main.c
//
// Records carrying a shell group are printed as the command line.
type CompactHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	start  time.Time
	prefix string
	groups []string
}

// NewCompactHandler creates a handler writing to w. Offsets are measured
// from its creation.
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	h := &CompactHandler{mu: &sync.Mutex{}, w: w, level: slog.LevelInfo, start: time.Now()}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	elapsed := r.Time.Sub(h.start)
	if r.Time.IsZero() {
		elapsed = time.Since(h.start)
	}
	offsetColor.Fprintf(&buf, "T+%.3fs ", elapsed.Seconds())

	var shell *slog.Attr
	var rest strings.Builder
	rest.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ctxlog.ShellKey && a.Value.Kind() == slog.KindGroup {
			shell = &a
			return true
		}
		writeAttr(&rest, h.groups, a)
		return true
	})

	if shell != nil && r.Level < slog.LevelWarn {
		buf.WriteString(commandLine(shell.Value.Group()))
	} else {
		c := levelColors[r.Level]
		if c == nil {
			c = color.New(color.Reset)
		}
		c.Fprintf(&buf, "%-5s ", r.Level.String())
		buf.WriteString(r.Message)
		if shell != nil {
			buf.WriteByte(' ')
			buf.WriteString(commandLine(shell.Value.Group()))
		}
	}
	buf.WriteString(rest.String())
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&b, h.groups, a)
	}
	clone := *h
	clone.prefix = b.String()
	return &clone
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func commandLine(attrs []slog.Attr) string {
	var argv []string
	var dir string
	for _, a := range attrs {
		switch a.Key {
		case "argv":
			if v, ok := a.Value.Any().([]string); ok {
				argv = v
			}
		case "dir":
			dir = a.Value.String()
		}
	}
	line := shellColor.Sprint("$ " + strings.Join(argv, " "))
	if dir != "" {
		line = dirColor.Sprintf("(cd %s) ", dir) + line
	}
	return line
}

func writeAttr(b *strings.Builder, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(append([]string(nil), groups...), a.Key)
		}
		for _, g := range a.Value.Group() {
			writeAttr(b, nested, g)
		}
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}
