package util

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger(" WARN ")
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}

	for _, bad := range []string{"invalid", ""} {
		logger = NewLogger(bad)
		if logger.GetLevel() != zerolog.InfoLevel {
			t.Fatalf("expected info fallback for %q, got %s", bad, logger.GetLevel())
		}
	}
}
