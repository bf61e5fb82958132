// Package util holds small shared helpers.
package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a timestamped stdout logger at the requested level,
// falling back to info on an unknown level string.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}
