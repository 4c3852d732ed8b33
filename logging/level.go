package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the caller-facing log level.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
	LevelOff

	// LevelDefault asks Init for the default level.
	LevelDefault Level = -1
)

// TraceLevel is the zap level below Debug used for trace output.
const TraceLevel = zapcore.DebugLevel - 1

var levelNames = [...]string{"Error", "Warn", "Info", "Debug", "Trace", "Off"}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int32(l))
}

func (l Level) Valid() bool {
	return l >= LevelError && l <= LevelOff
}

// Zap returns the minimum zap level enabled by l.
func (l Level) Zap() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelTrace:
		return TraceLevel
	}
	return zapcore.FatalLevel + 1
}

// FromZap maps a zap level onto the caller-facing levels.
func FromZap(l zapcore.Level) Level {
	switch {
	case l >= zapcore.ErrorLevel:
		return LevelError
	case l == zapcore.WarnLevel:
		return LevelWarn
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.DebugLevel:
		return LevelDebug
	}
	return LevelTrace
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return LevelWarn, nil
	}
	return LevelDefault, fmt.Errorf("unknown log level %q", s)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}
