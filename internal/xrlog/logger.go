// Package xrlog holds the silent logger shared by xr sub-packages.
//
// Sub-packages cannot import the root package for its logger without an
// import cycle, so each accepts a *slog.Logger from its caller and falls back
// to [Nop] when none is given.
package xrlog

import (
	"context"
	"log/slog"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var nop = slog.New(nopHandler{})

// Nop returns a logger that discards everything.
func Nop() *slog.Logger { return nop }

// IsNop reports whether h is the discarding handler.
func IsNop(h slog.Handler) bool {
	_, ok := h.(nopHandler)
	return ok
}

// Or returns l, or the nop logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return nop
	}
	return l
}
