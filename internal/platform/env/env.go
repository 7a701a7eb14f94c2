// Package env reads typed values from the environment, falling back to a
// default when the variable is unset or unparsable.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup reports whether key is set to a non-blank value.
func Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func String(key, fallback string) string {
	if v, ok := Lookup(key); ok {
		return v
	}
	return fallback
}

func Int(key string, fallback int) int {
	raw, ok := Lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func Duration(key string, fallback time.Duration) time.Duration {
	raw, ok := Lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
