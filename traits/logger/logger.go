package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. LOG_MODE=dev selects the colored
// console encoder, anything else the JSON production config.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return NewDevelopmentLogger()
	}

	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}

// NewDevelopmentLogger is the human-readable variant for local runs.
func NewDevelopmentLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return config.Build()
}
