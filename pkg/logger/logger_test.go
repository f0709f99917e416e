package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestLogUsableBeforeInit(t *testing.T) {
	if Log == nil {
		t.Fatalf("Log should never be nil")
	}
	Log.Info("no-op logger accepts writes", zap.String("k", "v"))
}

func TestSetMode(t *testing.T) {
	SetMode("debug")
	if Level() != zap.DebugLevel {
		t.Fatalf("debug mode: want=debug got=%s", Level())
	}
	SetMode("release")
	if Level() != zap.InfoLevel {
		t.Fatalf("release mode: want=info got=%s", Level())
	}
}
