// Package testutil holds logging helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a debug logger whose output goes to t.Log, so it
// only shows for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(newTBHandler(t))
}

// Recorder keeps the messages logged through a recording logger.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// Record is one captured log call.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Records returns a copy of everything logged so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Find returns the first record with msg whose attribute key equals value.
func (r *Recorder) Find(msg, key, value string) (Record, bool) {
	for _, rec := range r.Records() {
		if rec.Message == msg && rec.Attrs[key] == value {
			return rec, true
		}
	}
	return Record{}, false
}

// NewRecordingLogger is NewTestLogger plus a Recorder of every record.
func NewRecordingLogger(t testing.TB) (*slog.Logger, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	return slog.New(&recordingHandler{next: newTBHandler(t), rec: rec}), rec
}

func newTBHandler(t testing.TB) slog.Handler {
	return slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})
}

type tbWriter struct{ t testing.TB }

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

type recordingHandler struct {
	next  slog.Handler
	rec   *Recorder
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})

	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, Record{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.rec.mu.Unlock()
	return h.next.Handle(ctx, r)
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{
		next:  h.next.WithAttrs(attrs),
		rec:   h.rec,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// Groups are flattened; no caller logs with groups.
func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return &recordingHandler{next: h.next.WithGroup(name), rec: h.rec, attrs: h.attrs}
}
