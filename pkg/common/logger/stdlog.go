package logger

import (
	"context"
	"strings"
)

// stdLogger adapts the Logger to the io.Writer shape the standard library
// http.Server error log wants.
type stdLogger struct {
	logger *Logger
	level  Level
}

// Write implements io.Writer so the standard library log package can send
// its output through the structured logger.
func (s *stdLogger) Write(data []byte) (int, error) {
	msg := strings.TrimSpace(string(data))

	switch s.level {
	case LevelDebug:
		s.logger.Debugc(context.Background(), 4, msg)
	case LevelWarn:
		s.logger.Warnc(context.Background(), 4, msg)
	case LevelError:
		s.logger.Errorc(context.Background(), 4, msg)
	default:
		s.logger.Infoc(context.Background(), 4, msg)
	}

	return len(data), nil
}
