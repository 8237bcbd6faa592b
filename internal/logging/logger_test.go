package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_BuildsLoggerForBothEncodings(t *testing.T) {
	for _, json := range []bool{true, false} {
		logger, err := New(Options{Level: "debug", JSON: json})
		if err != nil {
			t.Fatalf("New(JSON=%v) error: %v", json, err)
		}
		defer logger.Sync()
		logger.Info("test message")
	}
}
