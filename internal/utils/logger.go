package utils

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvironmentVariable overrides the default info log level.
const LogLevelEnvironmentVariable = "JOBFOLDER_LOG_LEVEL"

// NewApplicationLogger constructs a zap logger configured for human-readable console output.
// An unknown or empty level name falls back to info.
func NewApplicationLogger(levelName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""

	level := zapcore.InfoLevel
	if parsedLevel, parseError := zapcore.ParseLevel(strings.TrimSpace(levelName)); parseError == nil && levelName != "" {
		level = parsedLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	return config.Build()
}
