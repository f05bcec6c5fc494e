// Package logging implements TASKER's per-run log file writer. The format
// is fixed by spec.md §6: "[DDMmmYY HH:MM:SS] [LEVEL: ]message"; no
// off-the-shelf structured logger reproduces that without being fought
// into it, so — matching every complete example repo's own preference for
// a hand-rolled logger over a third-party one — this is a small leveled
// writer over the standard library (see DESIGN.md).
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func ParseLevel(s string) (Level, error) {
	switch s {
	case "ERROR":
		return LevelError, nil
	case "WARN":
		return LevelWarn, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Logger writes leveled, timestamped lines to a file and, optionally (when
// debug echo is enabled), to an additional writer such as stderr.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	echo       io.Writer // nil disables echo
	level      Level
	now        func() time.Time
}

// New creates a Logger writing to out, filtered at level. echo, if
// non-nil, additionally receives DEBUG lines (spec.md §6's --debug flag).
func New(out io.Writer, level Level, echo io.Writer) *Logger {
	return &Logger{out: out, level: level, echo: echo, now: time.Now}
}

// NewFile opens path for appending (creating it if needed) and returns a
// Logger writing to it.
func NewFile(path string, level Level, echo io.Writer) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return New(f, level, echo), nil
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	toOut := level <= l.level
	toEcho := l.echo != nil && level == LevelDebug
	if !toOut && !toEcho {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s: ]%s\n", l.now().Format("02Jan06 15:04:05"), level, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != nil && toOut {
		io.WriteString(l.out, line)
	}
	if toEcho {
		io.WriteString(l.echo, line)
	}
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
