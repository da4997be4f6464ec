// Package logging provides structured JSON logging for the simulation
// engine and its front ends.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps the usual level names to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields holds structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger writes structured JSON log lines, one per entry.
type Logger struct {
	mu      sync.Mutex
	level   Level
	output  io.Writer
	service string
	base    Fields
}

type entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Service   string                 `json:"service"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
}

// New creates a Logger writing to stdout.
func New(service string, level Level) *Logger {
	return &Logger{level: level, output: os.Stdout, service: service}
}

// SetOutput redirects log output, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// WithFields returns a Logger whose entries always carry fields, e.g. a
// run identifier.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, service: l.service, base: merged}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields Fields) { l.log(DebugLevel, msg, fields, nil) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields Fields) { l.log(InfoLevel, msg, fields, nil) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields Fields) { l.log(WarnLevel, msg, fields, nil) }

// Error logs at error level with the error and caller attached.
func (l *Logger) Error(msg string, fields Fields, err error) {
	l.log(ErrorLevel, msg, fields, err)
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if level < l.level {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Message:   msg,
		Fields:    l.mergeBase(fields),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if level >= ErrorLevel {
		if _, file, line, ok := runtime.Caller(2); ok {
			e.File = file
			e.Line = line
		}
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v\n",
			e.Timestamp.Format(time.RFC3339), e.Level, msg, fields)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

func (l *Logger) mergeBase(fields Fields) Fields {
	if len(l.base) == 0 {
		return fields
	}
	merged := make(Fields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
