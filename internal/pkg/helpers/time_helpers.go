package helpers

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// ParseOptionalDuration is ParseDuration for settings where an empty string
// means "disabled" and yields zero without a warning.
func ParseOptionalDuration(durationStr string) time.Duration {
	if strings.TrimSpace(durationStr) == "" {
		return 0
	}
	return ParseDuration(durationStr, 0)
}
