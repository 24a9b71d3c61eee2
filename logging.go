package fos

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured-logging surface the kernel depends on. It is
// satisfied directly by *logiface.Logger[*stumpy.Event] (stumpy is the
// "model" logiface sink — a zero-alloc JSON writer, matching a kernel that
// otherwise avoids incidental allocation via its two arenas). It names the
// narrow subset of logger methods the kernel calls; the kernel itself holds
// the concrete *logiface.Logger[*stumpy.Event] set by WithLogger.
type Logger interface {
	Debug() *logiface.Builder[*stumpy.Event]
	Info() *logiface.Builder[*stumpy.Event]
	Warning() *logiface.Builder[*stumpy.Event]
	Err() *logiface.Builder[*stumpy.Event]
	Emerg() *logiface.Builder[*stumpy.Event]
}

// NewLogger returns a stumpy-backed JSON logger writing to w. A nil w
// defaults to os.Stderr, matching stumpy's own default.
func NewLogger(w io.Writer) *logiface.Logger[*stumpy.Event] {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))
}

// discardLogger is used when Config.Logger is left nil, so kernel code
// never has to nil-check before logging.
func discardLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(io.Discard)))
}
