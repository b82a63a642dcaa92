package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ANSI color codes used for console output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// console is the single shared logger behind the package functions.
// Combat sessions tag their own lines with session and tick context, so
// there is no per-logger field machinery here.
type console struct {
	mu      sync.Mutex
	level   Level
	writer  io.Writer
	noColor bool
}

var std = &console{level: InfoLevel, writer: os.Stdout}

// SetLevel sets the minimum severity that reaches the console
func SetLevel(level Level) {
	std.mu.Lock()
	std.level = level
	std.mu.Unlock()
}

// SetNoColor disables color output
func SetNoColor(noColor bool) {
	std.mu.Lock()
	std.noColor = noColor
	std.mu.Unlock()
}

// SetOutput redirects log output, primarily for tests
func SetOutput(w io.Writer) {
	std.mu.Lock()
	std.writer = w
	std.mu.Unlock()
}

func Debug(args ...interface{})                 { std.log(DebugLevel, fmt.Sprint(args...)) }
func Debugf(format string, args ...interface{}) { std.log(DebugLevel, fmt.Sprintf(format, args...)) }
func Info(args ...interface{})                  { std.log(InfoLevel, fmt.Sprint(args...)) }
func Infof(format string, args ...interface{})  { std.log(InfoLevel, fmt.Sprintf(format, args...)) }
func Warn(args ...interface{})                  { std.log(WarnLevel, fmt.Sprint(args...)) }
func Warnf(format string, args ...interface{})  { std.log(WarnLevel, fmt.Sprintf(format, args...)) }
func Error(args ...interface{})                 { std.log(ErrorLevel, fmt.Sprint(args...)) }
func Errorf(format string, args ...interface{}) { std.log(ErrorLevel, fmt.Sprintf(format, args...)) }
func Fatal(args ...interface{})                 { std.log(FatalLevel, fmt.Sprint(args...)) }
func Fatalf(format string, args ...interface{}) { std.log(FatalLevel, fmt.Sprintf(format, args...)) }

func (c *console) log(level Level, message string) {
	c.mu.Lock()

	if level < c.level {
		c.mu.Unlock()
		return
	}

	tag, tint := levelTag(level)
	timestamp := time.Now().Format("15:04:05")

	var line string
	if c.noColor {
		line = timestamp + " " + tag + " " + message
	} else {
		line = colorGray + timestamp + colorReset + " " + tint + tag + colorReset + " " + message
	}
	_, _ = fmt.Fprintln(c.writer, line)

	c.mu.Unlock()

	// Exit on fatal, after releasing the mutex
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (c *console) colorEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.noColor
}

func levelTag(level Level) (string, string) {
	switch level {
	case DebugLevel:
		return "DEBUG", colorGray
	case InfoLevel:
		return "INFO ", colorGreen
	case WarnLevel:
		return "WARN ", colorYellow
	case ErrorLevel:
		return "ERROR", colorRed
	case FatalLevel:
		return "FATAL", colorRed + colorBold
	default:
		return "?????", colorReset
	}
}

// ParseLevel parses a string log level, defaulting to info
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}
