package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter writes JSON events through zerolog. Common attribute types
// use typed fields; everything else goes through Interface.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter wraps logger.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

func (z *ZerologAdapter) Log(_ context.Context, level LogLevel, msg string, attrs ...Attribute) {
	evt := z.logger.WithLevel(logLevelToZerolog(level))
	for _, attr := range attrs {
		switch v := attr.Value.(type) {
		case string:
			evt = evt.Str(attr.Key, v)
		case int:
			evt = evt.Int(attr.Key, v)
		case bool:
			evt = evt.Bool(attr.Key, v)
		case float64:
			evt = evt.Float64(attr.Key, v)
		case time.Duration:
			evt = evt.Str(attr.Key, v.String())
		case error:
			evt = evt.AnErr(attr.Key, v)
		default:
			evt = evt.Interface(attr.Key, v)
		}
	}
	evt.Msg(msg)
}

func (z *ZerologAdapter) IsLevelEnabled(_ context.Context, level LogLevel) bool {
	return z.logger.GetLevel() <= logLevelToZerolog(level)
}

func (z *ZerologAdapter) Printf(format string, v ...any) {
	z.logger.Printf(format, v...)
}

var zerologLevels = map[LogLevel]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

func logLevelToZerolog(level LogLevel) zerolog.Level {
	if l, ok := zerologLevels[level]; ok {
		return l
	}
	return zerolog.InfoLevel
}
