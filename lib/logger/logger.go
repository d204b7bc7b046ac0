package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel controls the verbosity of a logger
type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// ILogger is the logging interface used throughout the application
type ILogger interface {
	SetLevel(level LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Logger implementation
// --------------------------------------------------------------------------

// idxLogger implements the ILogger interface with custom formatting
type idxLogger struct {
	name   string
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
}

func (l *idxLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *idxLogger) enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level >= level
}

func (l *idxLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *idxLogger) Infof(format string, args ...interface{}) {
	if l.enabled(INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *idxLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *idxLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *idxLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *idxLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger registry
// --------------------------------------------------------------------------

var (
	registryMu sync.Mutex
	registry   = make(map[string]*idxLogger)
)

// GetLogger returns the logger for the given package name, creating it
// on first use. Loggers are shared, changing the level affects all users
// of the same name.
func GetLogger(pkgName string) ILogger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[pkgName]; ok {
		return l
	}

	l := &idxLogger{
		name:   pkgName,
		level:  INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
	registry[pkgName] = l
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}
