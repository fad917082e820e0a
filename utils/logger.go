package utils

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Logger provides leveled, timestamped console logging for the harvest run.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLoggerTo creates a Logger writing info/warn/debug lines to out and
// error lines to errOut. Debug lines are only emitted when level is "debug".
func NewLoggerTo(out, errOut io.Writer, level string) *Logger {
	flags := 0
	return &Logger{
		info:         log.New(out, "", flags),
		warn:         log.New(out, "", flags),
		err:          log.New(errOut, "", flags),
		debug:        log.New(out, "", flags),
		debugEnabled: strings.EqualFold(strings.TrimSpace(level), "debug"),
	}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard, "info")
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}
