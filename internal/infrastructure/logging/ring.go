package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Record is one captured log entry, shaped for JSON serving.
type Record struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Ring is a fixed-capacity buffer of the most recent log records.
// When full, new records overwrite the oldest.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
}

// NewRing creates a ring holding up to size records.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{records: make([]Record, size)}
}

// Add appends a record, evicting the oldest when the ring is full.
func (r *Ring) Add(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.next] = rec
	r.next++
	if r.next == len(r.records) {
		r.next = 0
		r.full = true
	}
}

// Records returns a copy of the buffered records in arrival order.
func (r *Ring) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Record, r.next)
		copy(out, r.records[:r.next])
		return out
	}
	out := make([]Record, 0, len(r.records))
	out = append(out, r.records[r.next:]...)
	out = append(out, r.records[:r.next]...)
	return out
}

// ringHandler tees every record into the ring before passing it to the
// wrapped handler. Group nesting is flattened with dotted keys.
type ringHandler struct {
	next   slog.Handler
	ring   *Ring
	attrs  []slog.Attr
	prefix string
}

func (h *ringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ringHandler) Handle(ctx context.Context, rec slog.Record) error {
	captured := Record{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
	}
	if len(h.attrs) > 0 || rec.NumAttrs() > 0 {
		captured.Attrs = make(map[string]string)
		for _, a := range h.attrs {
			captured.Attrs[a.Key] = a.Value.String()
		}
		rec.Attrs(func(a slog.Attr) bool {
			captured.Attrs[h.prefix+a.Key] = a.Value.String()
			return true
		})
	}
	h.ring.Add(captured)
	return h.next.Handle(ctx, rec)
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &ringHandler{
		next:   h.next.WithAttrs(attrs),
		ring:   h.ring,
		attrs:  merged,
		prefix: h.prefix,
	}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	return &ringHandler{
		next:   h.next.WithGroup(name),
		ring:   h.ring,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}
