package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerProductionDefault(t *testing.T) {
	t.Setenv("LOG_MODE", "")
	l, err := NewLogger()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("production logger must not log at debug level")
	}
}

func TestNewLoggerDevMode(t *testing.T) {
	t.Setenv("LOG_MODE", "dev")
	l, err := NewLogger()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("dev logger should log at debug level")
	}
}
