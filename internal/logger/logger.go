package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	// level is shared by every handler built by reconfigure, so SetLevel
	// takes effect without rebuilding the handler.
	level = new(slog.LevelVar)

	mu       sync.RWMutex
	format   = "text"
	output   io.Writer = os.Stdout
	file     *os.File
	useColor bool
	slogger  *slog.Logger
)

func init() {
	level.Set(slog.LevelInfo)
	useColor = isTerminal(os.Stdout.Fd())
	reconfigure()
}

// reconfigure rebuilds the handler from the current settings. Callers hold mu.
func reconfigure() {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init configures the logger. Output can be "stdout", "stderr", or a file
// path, which is opened for appending. A previously opened log file is
// closed.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Output != "" {
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			setOutputLocked(os.Stdout, nil, isTerminal(os.Stdout.Fd()))
		case "stderr":
			setOutputLocked(os.Stderr, nil, isTerminal(os.Stderr.Fd()))
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			setOutputLocked(f, f, false)
		}
	}

	if lvl, ok := parseLevel(cfg.Level); ok {
		level.Set(lvl)
	}
	if f, ok := parseFormat(cfg.Format); ok {
		format = f
	}

	reconfigure()
	return nil
}

func setOutputLocked(w io.Writer, f *os.File, color bool) {
	if file != nil && file != f {
		_ = file.Close()
	}
	output = w
	file = f
	useColor = color
}

// InitWithWriter sends log output to w. It is mostly useful in tests.
func InitWithWriter(w io.Writer, lvl, fmtName string, enableColor bool) {
	mu.Lock()
	defer mu.Unlock()

	setOutputLocked(w, nil, enableColor)
	if l, ok := parseLevel(lvl); ok {
		level.Set(l)
	}
	if f, ok := parseFormat(fmtName); ok {
		format = f
	}
	reconfigure()
}

// SetLevel sets the minimum log level. Unknown levels are ignored.
func SetLevel(lvl string) {
	if l, ok := parseLevel(lvl); ok {
		level.Set(l)
	}
}

// SetFormat sets the output format (text or json). Unknown formats are
// ignored.
func SetFormat(fmtName string) {
	f, ok := parseFormat(fmtName)
	if !ok {
		return
	}
	mu.Lock()
	format = f
	reconfigure()
	mu.Unlock()
}

// GetLevel returns the current minimum level name.
func GetLevel() string {
	return level.Level().String()
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

func parseFormat(s string) (string, bool) {
	s = strings.ToLower(s)
	if s != "text" && s != "json" {
		return "", false
	}
	return s, true
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

func enabled(l slog.Level) bool {
	return l >= level.Level()
}

// ============================================================================
// Structured Logging API
// ============================================================================

// Debug logs at debug level with structured fields
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	if !enabled(slog.LevelDebug) {
		return
	}
	getLogger().Debug(msg, args...)
}

// Info logs at info level with structured fields
func Info(msg string, args ...any) {
	if !enabled(slog.LevelInfo) {
		return
	}
	getLogger().Info(msg, args...)
}

// Warn logs at warn level with structured fields
func Warn(msg string, args ...any) {
	if !enabled(slog.LevelWarn) {
		return
	}
	getLogger().Warn(msg, args...)
}

// Error logs at error level with structured fields
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// ============================================================================
// Context-aware Logging API
// ============================================================================

// DebugCtx logs at debug level, prepending the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(slog.LevelDebug) {
		return
	}
	getLogger().Debug(msg, appendContextFields(ctx, args)...)
}

// InfoCtx logs at info level with context
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(slog.LevelInfo) {
		return
	}
	getLogger().Info(msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with context
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if !enabled(slog.LevelWarn) {
		return
	}
	getLogger().Warn(msg, appendContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with context
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, appendContextFields(ctx, args)...)
}

// appendContextFields prepends the LogContext fields found in ctx to args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 10+len(args))
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.Mirror != "" {
		ctxArgs = append(ctxArgs, KeyMirror, lc.Mirror)
	}
	if lc.Watcher != "" {
		ctxArgs = append(ctxArgs, KeyWatcher, lc.Watcher)
	}
	if lc.StoreType != "" {
		ctxArgs = append(ctxArgs, KeyStoreType, lc.StoreType)
	}
	return append(ctxArgs, args...)
}

// With returns a new slog.Logger with additional attributes
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
