// Structured logging for the simulator host
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel controls which messages a logger emits.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the level name used in log output.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a LogLevel. Unrecognized
// names fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat selects the encoding of log lines.
type OutputFormat int

const (
	FormatText OutputFormat = iota
	FormatJSON
)

// Fields attaches structured key/value context to a log entry.
type Fields map[string]interface{}

// ANSI color per level, used only for text output on terminals.
var ansiColors = map[LogLevel]string{
	DEBUG: "\x1b[36m", // cyan
	INFO:  "\x1b[32m", // green
	WARN:  "\x1b[33m", // yellow
	ERROR: "\x1b[31m", // red
}

const ansiReset = "\x1b[0m"

// Logger writes leveled, optionally structured log lines. All
// methods are safe for concurrent use.
type Logger struct {
	mu         sync.Mutex
	prefix     string
	writer     io.Writer
	level      LogLevel
	timeFormat string
	colorize   bool
	outFormat  OutputFormat
	caller     bool
}

// New creates a logger writing text lines to stderr at INFO level.
// Color is enabled only when stderr is a terminal and NO_COLOR is
// unset.
func New(prefix string) *Logger {
	return &Logger{
		prefix:     prefix,
		writer:     os.Stderr,
		level:      INFO,
		timeFormat: "2006-01-02 15:04:05.000",
		colorize:   os.Getenv("NO_COLOR") == "" && isTerminal(os.Stderr),
		outFormat:  FormatText,
	}
}

// SetWriter redirects log output.
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// SetLevel changes the minimum emitted level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel reports the current minimum level.
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetColorize forces ANSI colors on or off for text output.
func (l *Logger) SetColorize(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = on
}

// SetFormat switches between text and JSON output.
func (l *Logger) SetFormat(f OutputFormat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outFormat = f
}

// SetTimeFormat changes the timestamp layout for text output.
func (l *Logger) SetTimeFormat(layout string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeFormat = layout
}

// SetCaller enables file:line annotation on every entry.
func (l *Logger) SetCaller(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.caller = on
}

// WithPrefix returns a child logger with a new prefix that shares
// the parent's writer and settings at the time of the call.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		prefix:     prefix,
		writer:     l.writer,
		level:      l.level,
		timeFormat: l.timeFormat,
		colorize:   l.colorize,
		outFormat:  l.outFormat,
		caller:     l.caller,
	}
}

// WithField starts an entry carrying one structured field.
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields starts an entry carrying several structured fields.
func (l *Logger) WithFields(fields Fields) *Entry {
	f := make(Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &Entry{logger: l, fields: f}
}

// WithError starts an entry with the error message under the
// "error" key.
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, nil, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, nil, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, nil, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, nil, format, args...)
}

// Entry is a log line under construction, accumulating fields
// before emission.
type Entry struct {
	logger *Logger
	fields Fields
}

// WithField adds one field to the entry.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

// WithFields adds several fields to the entry.
func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError adds the error message under the "error" key.
func (e *Entry) WithError(err error) *Entry {
	e.fields["error"] = err.Error()
	return e
}

func (e *Entry) Debug(format string, args ...interface{}) {
	e.logger.log(DEBUG, e.fields, format, args...)
}

func (e *Entry) Info(format string, args ...interface{}) {
	e.logger.log(INFO, e.fields, format, args...)
}

func (e *Entry) Warn(format string, args ...interface{}) {
	e.logger.log(WARN, e.fields, format, args...)
}

func (e *Entry) Error(format string, args ...interface{}) {
	e.logger.log(ERROR, e.fields, format, args...)
}

// JSONLogEntry is the wire shape of one JSON-format log line.
type JSONLogEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Logger  string                 `json:"logger,omitempty"`
	Caller  string                 `json:"caller,omitempty"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) log(level LogLevel, fields Fields, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	now := time.Now()

	var caller string
	if l.caller {
		caller = callerLocation()
	}

	var line string
	if l.outFormat == FormatJSON {
		line = l.formatJSON(now, level, caller, msg, fields)
	} else {
		line = l.formatText(now, level, caller, msg, fields)
	}
	fmt.Fprintln(l.writer, line)
}

// callerLocation walks past the logger's own frames and reports
// the first caller outside this package's source files.
func callerLocation() string {
	for skip := 2; skip < 10; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		base := filepath.Base(file)
		if base == "logger.go" || base == "rotation.go" {
			continue
		}
		return fmt.Sprintf("%s:%d", base, line)
	}
	return ""
}

func (l *Logger) formatText(now time.Time, level LogLevel, caller, msg string, fields Fields) string {
	var b strings.Builder
	b.WriteString(now.Format(l.timeFormat))
	b.WriteByte(' ')

	tag := fmt.Sprintf("[%-5s]", level.String())
	if l.colorize {
		b.WriteString(ansiColors[level])
		b.WriteString(tag)
		b.WriteString(ansiReset)
	} else {
		b.WriteString(tag)
	}

	if caller != "" {
		b.WriteByte(' ')
		b.WriteString(caller)
	}
	if l.prefix != "" {
		b.WriteByte(' ')
		b.WriteString(l.prefix)
		b.WriteByte(':')
	}
	b.WriteByte(' ')
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	return b.String()
}

func (l *Logger) formatJSON(now time.Time, level LogLevel, caller, msg string, fields Fields) string {
	entry := JSONLogEntry{
		Time:    now.Format(time.RFC3339Nano),
		Level:   level.String(),
		Logger:  l.prefix,
		Caller:  caller,
		Message: msg,
		Fields:  fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		// A field value that cannot be marshaled falls back to text.
		return l.formatText(now, level, caller, msg, nil)
	}
	return string(data)
}

// Package-level default logger. CAMSIM_LOG_LEVEL, CAMSIM_LOG_FORMAT
// and CAMSIM_LOG_CALLER override its defaults at startup.
var defaultLogger = New("camsim")

func init() {
	ConfigureFromEnv()
}

// ConfigureFromEnv applies CAMSIM_LOG_* environment settings to the
// default logger.
func ConfigureFromEnv() {
	if v := os.Getenv("CAMSIM_LOG_LEVEL"); v != "" {
		defaultLogger.SetLevel(ParseLevel(v))
	}
	if v := os.Getenv("CAMSIM_LOG_FORMAT"); strings.EqualFold(v, "json") {
		defaultLogger.SetFormat(FormatJSON)
	}
	if v := os.Getenv("CAMSIM_LOG_CALLER"); v == "1" || strings.EqualFold(v, "true") {
		defaultLogger.SetCaller(true)
	}
}

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// GetLogger returns a child of the default logger for a named
// component.
func GetLogger(prefix string) *Logger {
	return defaultLogger.WithPrefix(prefix)
}

// SetLevel changes the default logger's minimum level.
func SetLevel(level LogLevel) { defaultLogger.SetLevel(level) }

// SetFormat switches the default logger's output encoding.
func SetFormat(f OutputFormat) { defaultLogger.SetFormat(f) }

// SetWriter redirects the default logger's output.
func SetWriter(w io.Writer) { defaultLogger.SetWriter(w) }

// SetColorize forces colors on or off for the default logger.
func SetColorize(on bool) { defaultLogger.SetColorize(on) }

func Debug(format string, args ...interface{}) {
	defaultLogger.log(DEBUG, nil, format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.log(INFO, nil, format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.log(WARN, nil, format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.log(ERROR, nil, format, args...)
}

// Errorf mirrors Error for call sites that prefer the fmt-style
// name.
func Errorf(format string, args ...interface{}) {
	defaultLogger.log(ERROR, nil, format, args...)
}

// WithField starts an entry on the default logger.
func WithField(key string, value interface{}) *Entry {
	return defaultLogger.WithField(key, value)
}

// WithFields starts an entry on the default logger.
func WithFields(fields Fields) *Entry {
	return defaultLogger.WithFields(fields)
}

// WithError starts an entry on the default logger with the error
// message attached.
func WithError(err error) *Entry {
	return defaultLogger.WithError(err)
}
