// Package plog is a small leveled logger in the style rclone's fs
// package rolls for itself rather than reaching for a structured
// logging library: a Level enum gating package-level Debugf / Infof /
// Errorf / Logf helpers that print through the standard log package.
package plog

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Level is a logging severity, ordered least to most severe being
// filtered out.
type Level int32

// Levels, most to least verbose.
const (
	DEBUG Level = iota
	INFO
	NOTICE
	ERROR
	EMERGENCY
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case NOTICE:
		return "NOTICE"
	case ERROR:
		return "ERROR"
	case EMERGENCY:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config/flag string (case-insensitive) to a Level,
// defaulting to INFO for an unrecognised name.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "NOTICE":
		return NOTICE
	case "ERROR":
		return ERROR
	case "EMERGENCY":
		return EMERGENCY
	default:
		return INFO
	}
}

var minLevel int32 = int32(INFO)

// SetLevel sets the minimum level that will be printed.
func SetLevel(l Level) {
	atomic.StoreInt32(&minLevel, int32(l))
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	return Level(atomic.LoadInt32(&minLevel))
}

// Logf prints a message tagged with level about subject (which may be
// nil) if level is at or above the configured minimum.
func Logf(level Level, subject any, format string, args ...any) {
	if level < GetLevel() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if subject != nil {
		log.Printf("%-9s: %v: %s", level, subject, msg)
		return
	}
	log.Printf("%-9s: %s", level, msg)
}

// Debugf logs at DEBUG level.
func Debugf(subject any, format string, args ...any) { Logf(DEBUG, subject, format, args...) }

// Infof logs at INFO level.
func Infof(subject any, format string, args ...any) { Logf(INFO, subject, format, args...) }

// Noticef logs at NOTICE level.
func Noticef(subject any, format string, args ...any) { Logf(NOTICE, subject, format, args...) }

// Errorf logs at ERROR level.
func Errorf(subject any, format string, args ...any) { Logf(ERROR, subject, format, args...) }
