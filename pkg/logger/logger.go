package logger

import (
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var (
	level   = new(slog.LevelVar)
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(newLogger())
}

func newLogger() *slog.Logger {
	w := os.Stderr
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

// SetDebug toggles debug-level output for the whole process.
func SetDebug(debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

func log(component string, lvl slog.Level, msg string, fields map[string]any) {
	l := current.Load().With("component", component)
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	l.Log(nil, lvl, msg, attrs...)
}

func DebugC(component, msg string) { log(component, slog.LevelDebug, msg, nil) }
func InfoC(component, msg string)  { log(component, slog.LevelInfo, msg, nil) }
func WarnC(component, msg string)  { log(component, slog.LevelWarn, msg, nil) }
func ErrorC(component, msg string) { log(component, slog.LevelError, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { log(component, slog.LevelDebug, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { log(component, slog.LevelInfo, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { log(component, slog.LevelWarn, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { log(component, slog.LevelError, msg, fields) }
