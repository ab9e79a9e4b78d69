package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const timeFormat = "2006-01-02 15:04:05"

type Options struct {
	Level slog.Leveler
	// Now overrides the record time, for tests.
	Now func() time.Time
	// Renderer controls colour detection. Defaults to one bound to the writer.
	Renderer *lipgloss.Renderer
}

// Handler writes one coloured line per record:
//
//	[2006-01-02 15:04:05] INFO  message key=value
type Handler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   Options
	styles levelStyles
	attrs  []slog.Attr
	groups []string
}

type levelStyles struct {
	timestamp lipgloss.Style
	debug     lipgloss.Style
	info      lipgloss.Style
	warn      lipgloss.Style
	err       lipgloss.Style
	key       lipgloss.Style
}

var _ slog.Handler = (*Handler)(nil)

func NewHandler(w io.Writer, opts *Options) *Handler {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.Renderer == nil {
		o.Renderer = lipgloss.NewRenderer(w)
	}

	r := o.Renderer
	return &Handler{
		w:    w,
		mu:   &sync.Mutex{},
		opts: o,
		styles: levelStyles{
			timestamp: r.NewStyle().Foreground(lipgloss.Color("244")),
			debug:     r.NewStyle().Foreground(lipgloss.Color("245")),
			info:      r.NewStyle().Foreground(lipgloss.Color("42")),
			warn:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			err:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
			key:       r.NewStyle().Foreground(lipgloss.Color("39")),
		},
	}
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return level, nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if h.opts.Now != nil {
		ts = h.opts.Now()
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(h.styles.timestamp.Render("[" + ts.Format(timeFormat) + "]"))
	b.WriteByte(' ')
	b.WriteString(h.levelStyle(record.Level).Render(fmt.Sprintf("%-5s", record.Level.String())))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	prefix := strings.Join(h.groups, ".")
	for _, attr := range h.attrs {
		h.appendAttr(&b, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&b, prefix, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	next := h.clone()
	prefix := strings.Join(h.groups, ".")
	for _, attr := range attrs {
		if prefix != "" {
			attr.Key = prefix + "." + attr.Key
		}
		next.attrs = append(next.attrs, attr)
	}
	return next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *Handler) clone() *Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

func (h *Handler) appendAttr(b *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			h.appendAttr(b, key, child)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(h.styles.key.Render(key))
	b.WriteByte('=')
	b.WriteString(formatValue(attr.Value))
}

func (h *Handler) levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return h.styles.err
	case level >= slog.LevelWarn:
		return h.styles.warn
	case level >= slog.LevelInfo:
		return h.styles.info
	default:
		return h.styles.debug
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprint(v.Any())
	}

	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
