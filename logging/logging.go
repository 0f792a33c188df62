// Package logging provides leveled console logging for the orchestration
// core. Runs themselves are recorded as RunResult values; this package only
// carries operational output (persistence failures, scheduler decisions,
// telemetry fallbacks) for whoever is watching the process.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger provides structured logging to stderr.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Orchestration logging helpers ---
// Called from the run/persist/refresh paths so call sites stay one-liners.

// RunStart logs the start of a tool execution.
func (l *Logger) RunStart(toolID, reason string, forced bool) {
	l.Debug("run_start", map[string]interface{}{
		"tool":   toolID,
		"reason": reason,
		"forced": forced,
	})
}

// RunComplete logs the completion of a tool execution.
func (l *Logger) RunComplete(toolID string, success bool, duration time.Duration) {
	fields := map[string]interface{}{
		"tool":     toolID,
		"success":  success,
		"duration": duration.String(),
	}
	if success {
		l.Debug("run_complete", fields)
	} else {
		l.Info("run_failed", fields)
	}
}

// PersistFailure logs a durable-store write failure. The in-memory value
// stays authoritative, so this is warning-level, never fatal.
func (l *Logger) PersistFailure(key string, err error) {
	l.Warn("persist_failed", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

// RefreshError logs an auto-run failure for a single tool. The scheduler
// continues with the remaining tools.
func (l *Logger) RefreshError(toolID string, err error) {
	l.Warn("refresh_failed", map[string]interface{}{
		"tool":  toolID,
		"error": err.Error(),
	})
}

// RefreshSkipped logs that a cached result was still fresh.
func (l *Logger) RefreshSkipped(toolID string, age time.Duration) {
	l.Debug("refresh_skipped", map[string]interface{}{
		"tool": toolID,
		"age":  age.String(),
	})
}

// RegistryReload logs the outcome of a registry rebuild.
func (l *Logger) RegistryReload(resolved, disabled int) {
	l.Info("registry_reload", map[string]interface{}{
		"resolved": resolved,
		"disabled": disabled,
	})
}
