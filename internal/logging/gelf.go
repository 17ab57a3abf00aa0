package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// Syslog severities used by GELF.
const (
	gelfError int32 = 3
	gelfWarn  int32 = 4
	gelfInfo  int32 = 6
	gelfDebug int32 = 7
)

const gelfFacility = "combat-tracker"

// messageWriter is the part of gelf.Writer the handler needs.
type messageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GelfHandler ships slog records to Graylog as GELF messages.
type GelfHandler struct {
	w      messageWriter
	closer io.Closer
	level  slog.Leveler
	host   string
	attrs  []slog.Attr
	group  string
}

// NewGelfHandler dials the Graylog input at addr.
func NewGelfHandler(addr string, level slog.Leveler) (*GelfHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	w.Facility = gelfFacility
	h := newGelfHandler(w, level)
	h.closer = w
	return h, nil
}

func newGelfHandler(w messageWriter, level slog.Leveler) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &GelfHandler{w: w, level: level, host: host}
}

// Enabled reports whether the level passes the handler's minimum.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts the record into a GELF message and writes it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.group, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    gelfLevel(r.Level),
		Facility: gelfFacility,
		Extra:    extra,
	})
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup prefixes subsequent attribute keys with name.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

// Close closes the underlying connection.
func (h *GelfHandler) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfError
	case l >= slog.LevelWarn:
		return gelfWarn
	case l >= slog.LevelInfo:
		return gelfInfo
	default:
		return gelfDebug
	}
}

// addExtra flattens groups into dotted keys. GELF additional fields carry a
// leading underscore.
func addExtra(extra map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addExtra(extra, key, ga)
		}
		return
	}
	if key == "" {
		return
	}
	var v any
	switch a.Value.Kind() {
	case slog.KindString:
		v = a.Value.String()
	case slog.KindInt64:
		v = a.Value.Int64()
	case slog.KindUint64:
		v = a.Value.Uint64()
	case slog.KindFloat64:
		v = a.Value.Float64()
	case slog.KindBool:
		v = a.Value.Bool()
	default:
		v = a.Value.String()
	}
	extra["_"+key] = v
}
