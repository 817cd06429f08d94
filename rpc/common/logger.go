package common

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// loggerNames are the dragonboat packages and the packages of this module whose
// level follows the configured log level
var loggerNames = []string{
	// dragonboat
	"raft", "raftdb", "rsm", "transport", "dragonboat", "grpc", "util", "logdb",
	// dcommerce
	"store", "commerce", "transport/rpc", "rpc",
}

var levelNames = map[string]logger.LogLevel{
	"debug":   logger.DEBUG,
	"":        logger.INFO,
	"info":    logger.INFO,
	"warn":    logger.WARNING,
	"warning": logger.WARNING,
	"error":   logger.ERROR,
}

// output is shared by all loggers, log.Logger serializes the writes
var output = log.New(os.Stdout, "", log.Ldate|log.Ltime)

// lineLogger writes "LEVEL | package | message" lines, it implements logger.ILogger
type lineLogger struct {
	pkg   string
	level logger.LogLevel
}

// NewLogger is the logger.Factory installed by InitLoggers
func NewLogger(pkg string) logger.ILogger {
	return &lineLogger{pkg: pkg, level: logger.INFO}
}

func (l *lineLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.write(logger.DEBUG, "DEBUG", format, args)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.write(logger.INFO, "INFO", format, args)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.write(logger.WARNING, "WARN", format, args)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.write(logger.ERROR, "ERROR", format, args)
}

// Panicf logs and panics regardless of the level
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	output.Printf("%-5s | %-15s | %s", "PANIC", l.pkg, msg)
	panic(msg)
}

func (l *lineLogger) write(level logger.LogLevel, tag, format string, args []interface{}) {
	if l.level < level {
		return
	}
	output.Printf("%-5s | %-15s | %s", tag, l.pkg, fmt.Sprintf(format, args...))
}

// ParseLogLevel converts debug, info, warn or error to the dragonboat level
func ParseLogLevel(level string) (logger.LogLevel, error) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return 0, fmt.Errorf("invalid log level %q (must be one of debug, info, warn, error)", level)
	}
	return lvl, nil
}

// InitLoggers installs NewLogger as the logger factory and applies level to all known loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	logger.SetLoggerFactory(NewLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
