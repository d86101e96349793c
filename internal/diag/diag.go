// Package diag is the ambient diagnostics sink: informational and skip
// messages are gated by verbosity, errors are always emitted, both via
// log/slog over a handler that writes the "!"-prefixed single-line style
// spec.md §6 describes for stderr diagnostics.
package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// Sink wraps a slog.Logger configured for this tool's stderr conventions.
type Sink struct {
	log     *slog.Logger
	verbose bool
}

// New builds a Sink writing to w. When verbose is false, Info/Skip calls are
// dropped before formatting; Error calls are never gated.
func New(w io.Writer, verbose bool) *Sink {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := &linePrefixHandler{w: w, level: level, tty: isTerminal(w), mu: &sync.Mutex{}}
	return &Sink{log: slog.New(h), verbose: verbose}
}

// Verbose reports whether informational diagnostics are enabled.
func (s *Sink) Verbose() bool { return s.verbose }

// Info logs a verbose-only informational line (e.g. "skip: solid entry").
func (s *Sink) Info(msg string, args ...any) {
	if !s.verbose {
		return
	}
	s.log.Info(msg, args...)
}

// Skip logs a verbose-only per-entry skip diagnostic (solid, directory,
// unencrypted), per spec.md §7's "skip" error kind.
func (s *Sink) Skip(reason, filename string) {
	s.Info("skip", "reason", reason, "file", filename)
}

// Error logs an always-on diagnostic; structural/io/unsupported-version/
// not-an-archive failures all funnel through here.
func (s *Sink) Error(msg string, args ...any) {
	s.log.Error(msg, args...)
}

// Advisory logs an always-on warning for a selected-but-too-small candidate,
// per spec.md §7's "advisory" error kind (warning only, record still emitted).
func (s *Sink) Advisory(msg string, args ...any) {
	s.log.Warn(msg, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// linePrefixHandler renders each record as a single "!"-prefixed line,
// mirroring the teacher's RARINDEX_DEBUG-gated fmt.Fprintf diagnostic style.
// On a TTY it additionally writes a plain (unprefixed) duplicate so a human
// watching the terminal sees an unambiguous line even without grepping "!".
// mu is shared across every handler derived via WithAttrs (spec.md §5: once
// an implementation parallelizes across archives, it must serialize writes
// to this shared stderr stream) and guards both the prefixed line and its
// TTY duplicate so the two writes of one record can never be split apart by
// a concurrent goroutine's own record.
type linePrefixHandler struct {
	w     io.Writer
	level slog.Level
	tty   bool
	attrs []slog.Attr
	mu    *sync.Mutex
}

func (h *linePrefixHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *linePrefixHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("!%s", r.Message)
	r.Attrs(func(a slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	for _, a := range h.attrs {
		line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := fmt.Fprintln(h.w, line); err != nil {
		return err
	}
	if h.tty {
		_, err := fmt.Fprintln(h.w, line[1:])
		return err
	}
	return nil
}

func (h *linePrefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &linePrefixHandler{w: h.w, level: h.level, tty: h.tty, attrs: append(h.attrs, attrs...), mu: h.mu}
}

func (h *linePrefixHandler) WithGroup(_ string) slog.Handler { return h }
