package logger

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// StandardAdapter adapts the standard library log package. It has no level
// filtering; the level is rendered as a prefix.
type StandardAdapter struct {
	logger *log.Logger
}

// NewStandardAdapter creates a new adapter for the standard log package
func NewStandardAdapter(logger *log.Logger) *StandardAdapter {
	return &StandardAdapter{logger: logger}
}

func (s *StandardAdapter) Log(_ context.Context, level LogLevel, msg string, attrs ...Attribute) {
	if len(attrs) == 0 {
		s.logger.Printf("[%s] %s", level, msg)
		return
	}

	attrStrs := make([]string, len(attrs))
	for i, attr := range attrs {
		attrStrs[i] = fmt.Sprintf("%s=%v", attr.Key, attr.Value)
	}
	s.logger.Printf("[%s] %s %s", level, msg, strings.Join(attrStrs, " "))
}

func (s *StandardAdapter) IsLevelEnabled(context.Context, LogLevel) bool {
	return true
}

func (s *StandardAdapter) Printf(format string, v ...any) {
	s.logger.Printf(format, v...)
}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}
