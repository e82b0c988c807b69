package util

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go-candleprep/internal/common"
)

// Logger tags events with the error code/message pairs from internal/common.
type Logger struct {
	stage string
}

// NewLogger creates a Logger whose events carry stage when it is non-empty.
func NewLogger(stage string) *Logger {
	return &Logger{stage: stage}
}

// Error logs err with the specified error code, message, and optional key-value fields.
func (l *Logger) Error(err error, errorCode common.ErrorCode, errorMsg common.ErrorMessage, msg string, fields ...interface{}) {
	event := log.Error().
		Err(err).
		Str("error_code", errorCode.String()).
		Str("error_message", errorMsg.String())
	l.send(event, msg, fields)
}

// Warn logs a warning with the specified error code, message, and optional key-value fields.
func (l *Logger) Warn(errorCode common.ErrorCode, errorMsg common.ErrorMessage, msg string, fields ...interface{}) {
	event := log.Warn().
		Str("error_code", errorCode.String()).
		Str("error_message", errorMsg.String())
	l.send(event, msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.send(log.Info(), msg, fields)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.send(log.Debug(), msg, fields)
}

func (l *Logger) send(event *zerolog.Event, msg string, fields []interface{}) {
	if l.stage != "" {
		event = event.Str("stage", l.stage)
	}
	// odd trailing key is dropped
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

// SetupLogging sets the global level and routes the global logger to a console writer on out.
func SetupLogging(level string, out io.Writer) error {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level %q, use: debug, info, warn, error", level)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	return nil
}
