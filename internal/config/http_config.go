package config

import (
	"time"
)

type HTTPConfig interface {
	GetHTTPTimeout() time.Duration
}

type HTTP struct{}

var _ HTTPConfig = HTTP{}

// GetHTTPTimeout returns the whole-request timeout applied by the HTTP
// client. The executor itself enforces no timeout; the transport owns it.
func (HTTP) GetHTTPTimeout() time.Duration {
	return durationEnv("HTTP_TIMEOUT", 30*time.Second)
}

func durationEnv(key string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
