package logx

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Format represents the output format
type Format string

const (
	// FormatConsole outputs colored console logs (default)
	FormatConsole Format = "console"
	// FormatJSON outputs JSON formatted logs
	FormatJSON Format = "json"
)

// Fields is a map of structured data attached to a log entry.
type Fields map[string]any

// Config holds the logger configuration
type Config struct {
	Level        Level
	Format       Format
	EnableColors bool
	TimeFormat   string
	Output       io.Writer
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
	}
}

// LoadFromEnv loads configuration from LOG_LEVEL, LOG_FORMAT and LOG_COLOR.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}
	if format := strings.ToLower(os.Getenv("LOG_FORMAT")); format == "json" {
		config.Format = FormatJSON
	}
	if color := os.Getenv("LOG_COLOR"); color != "" {
		config.EnableColors = strings.ToLower(color) == "true" || color == "1"
	}
	return config
}

// Logger is the main logger instance
type Logger struct {
	config   *Config
	mu       sync.Mutex
	writer   io.Writer
	exitFunc func(int)
}

// NewLogger creates a new logger with the given config
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}
	return &Logger{
		config:   config,
		writer:   writer,
		exitFunc: os.Exit,
	}
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if !l.config.Level.Enabled(level) {
		return
	}

	now := time.Now()
	var line []byte
	if l.config.Format == FormatJSON {
		line = l.formatJSON(level, msg, fields, err, now)
	} else {
		line = l.formatConsole(level, msg, fields, err, now)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, werr := l.writer.Write(line); werr != nil {
		fmt.Fprintf(os.Stderr, "Error writing log: %v\n", werr)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorWhite  = "\033[97m"

	colorBoldRed = "\033[1;31m"
)

func (l *Logger) formatConsole(level Level, msg string, fields Fields, err error, ts time.Time) []byte {
	var b strings.Builder

	if l.config.EnableColors {
		b.WriteString(colorGray)
		b.WriteString(ts.Format(l.config.TimeFormat))
		b.WriteString(colorReset)
	} else {
		b.WriteString(ts.Format(l.config.TimeFormat))
	}
	b.WriteString(" ")

	levelStr := fmt.Sprintf("%-5s", level.String())
	if l.config.EnableColors {
		b.WriteString(levelColor(level))
		b.WriteString(levelStr)
		b.WriteString(colorReset)
	} else {
		b.WriteString(levelStr)
	}
	b.WriteString(" ")

	if l.config.EnableColors {
		b.WriteString(colorWhite)
		b.WriteString(msg)
		b.WriteString(colorReset)
	} else {
		b.WriteString(msg)
	}

	if len(fields) > 0 {
		b.WriteString(" ")
		if l.config.EnableColors {
			b.WriteString(colorCyan)
		}
		first := true
		for k, v := range fields {
			if !first {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, v)
			first = false
		}
		if l.config.EnableColors {
			b.WriteString(colorReset)
		}
	}

	if err != nil {
		b.WriteString(" ")
		if l.config.EnableColors {
			b.WriteString(colorRed)
		}
		fmt.Fprintf(&b, "error=%v", err)
		if l.config.EnableColors {
			b.WriteString(colorReset)
		}
	}

	b.WriteString("\n")
	return []byte(b.String())
}

func (l *Logger) formatJSON(level Level, msg string, fields Fields, err error, ts time.Time) []byte {
	data := make(map[string]any, len(fields)+4)
	data["level"] = level.String()
	data["message"] = msg
	data["timestamp"] = ts.Format(time.RFC3339Nano)
	for k, v := range fields {
		data[k] = v
	}
	if err != nil {
		data["error"] = err.Error()
	}

	line, merr := json.Marshal(data)
	if merr != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, level.String(), msg))
	}
	return append(line, '\n')
}

func levelColor(level Level) string {
	switch level {
	case LevelWarn:
		return colorYellow
	case LevelError:
		return colorRed
	case LevelFatal:
		return colorBoldRed
	case LevelDebug, LevelTrace:
		return colorGray
	default:
		return colorCyan
	}
}

// WithFields creates a new entry with fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Entry {
	return l.WithFields(Fields{key: value})
}

// WithError creates a new entry carrying an error
func (l *Logger) WithError(err error) *Entry {
	return &Entry{logger: l, err: err}
}

func (l *Logger) exit(code int) {
	l.exitFunc(code)
}

// Entry accumulates fields before emitting a log line.
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value any) *Entry {
	if e.fields == nil {
		e.fields = make(Fields)
	}
	e.fields[key] = value
	return e
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	if e.fields == nil {
		e.fields = make(Fields, len(fields))
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError attaches an error to the entry
func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

func (e *Entry) Debug(msg string)                  { e.logger.log(LevelDebug, msg, e.fields, e.err) }
func (e *Entry) Info(msg string)                   { e.logger.log(LevelInfo, msg, e.fields, e.err) }
func (e *Entry) Warn(msg string)                   { e.logger.log(LevelWarn, msg, e.fields, e.err) }
func (e *Entry) Error(msg string)                  { e.logger.log(LevelError, msg, e.fields, e.err) }
func (e *Entry) Debugf(format string, args ...any) { e.Debug(fmt.Sprintf(format, args...)) }
func (e *Entry) Infof(format string, args ...any)  { e.Info(fmt.Sprintf(format, args...)) }
func (e *Entry) Warnf(format string, args ...any)  { e.Warn(fmt.Sprintf(format, args...)) }
func (e *Entry) Errorf(format string, args ...any) { e.Error(fmt.Sprintf(format, args...)) }
