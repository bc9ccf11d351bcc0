// Package log is the process-wide structured logger: a stderr handler
// gated by verbosity/format, fanned out to an optional rotating JSONL
// debug file. Every other package logs through log/slog directly once
// Init has installed the global handler; this package only owns that
// installation plus a couple of codexrelay-specific correlation helpers.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var (
	logger       *slog.Logger
	debugFile    *RotatingFile
	baseHandlers []slog.Handler
)

// Options configures the global logger. Zero value is a reasonable
// default: warn+error to stderr as text, no debug file.
type Options struct {
	// Verbose turns on debug/info to stderr. Ignored when Quiet is set.
	Verbose bool
	// JSONFormat emits stderr records as JSON instead of slog's text format.
	JSONFormat bool
	// Quiet suppresses debug/info to stderr regardless of Verbose — used
	// for commands whose stdout is itself machine-readable output.
	Quiet bool
	// DebugDir, if set, receives one JSONL file per day at debug level
	// regardless of the stderr settings above.
	DebugDir string
	// RetentionDays prunes debug files older than this many days on Init.
	// Zero disables pruning.
	RetentionDays int
	// Stderr overrides the stderr writer; defaults to os.Stderr.
	Stderr io.Writer
}

// Init installs the global logger. Safe to call more than once (a CLI
// re-invocation of PersistentPreRunE, a test resetting state).
func Init(opts Options) error {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	stderrLevel := slog.LevelWarn
	if opts.Verbose && !opts.Quiet {
		stderrLevel = slog.LevelDebug
	}
	stderrOpts := &slog.HandlerOptions{Level: stderrLevel}

	var handlers []slog.Handler
	if opts.JSONFormat {
		handlers = append(handlers, slog.NewJSONHandler(stderr, stderrOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(stderr, stderrOpts))
	}

	if opts.DebugDir != "" {
		if opts.RetentionDays > 0 {
			Prune(opts.DebugDir, opts.RetentionDays)
		}
		rf, err := NewRotatingFile(opts.DebugDir)
		if err != nil {
			return err
		}
		debugFile = rf
		handlers = append(handlers, slog.NewJSONHandler(rf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	baseHandlers = handlers
	logger = slog.New(&fanoutHandler{handlers: handlers})
	slog.SetDefault(logger)
	return nil
}

// Close flushes and closes the debug file, if one is open.
func Close() {
	if debugFile != nil {
		debugFile.Close()
		debugFile = nil
	}
}

// fanoutHandler dispatches each record to every handler whose level gate
// accepts it, stopping at the first write error.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// Debug logs at debug level through the global logger.
func Debug(msg string, args ...any) { logger.Debug(msg, args...) }

// Info logs at info level through the global logger.
func Info(msg string, args ...any) { logger.Info(msg, args...) }

// Warn logs at warn level through the global logger.
func Warn(msg string, args ...any) { logger.Warn(msg, args...) }

// Error logs at error level through the global logger.
func Error(msg string, args ...any) { logger.Error(msg, args...) }

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger { return logger.With(args...) }

// SetOutput redirects the global logger to w at debug level, bypassing
// Init entirely. Intended for tests.
func SetOutput(w io.Writer) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// SetRunID tags every subsequent log record with run_id, so the lines a
// single OAuth login flow or proxy request produces can be grepped out
// of the debug file as one sequence.
func SetRunID(runID string) {
	logger = slog.New(logger.Handler().WithAttrs([]slog.Attr{slog.String("run_id", runID)}))
	slog.SetDefault(logger)
}

// ClearRunID drops the run_id correlation set by SetRunID, restoring the
// handler chain Init originally installed.
func ClearRunID() {
	logger = slog.New(&fanoutHandler{handlers: baseHandlers})
	slog.SetDefault(logger)
}

// WithAccount returns a logger tagged with account_id, for logging about a
// single account. No package in this module calls it.
func WithAccount(accountID string) *slog.Logger {
	return logger.With("account_id", accountID)
}

func init() {
	logger = slog.Default()
}
