package config

import (
	"strconv"
	"strings"
	"time"
)

type SecurityConfig interface {
	GetMaxLoginFailures() int
	GetFailureWindow() time.Duration
	GetLockoutDuration() time.Duration
	GetDevBypassEnabled() bool
	GetTrustedProxy() bool
	GetAdminIDs() []string
	GetAdminEmails() []string
	GetModeratorEmails() []string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxLoginFailures() int {
	return intEnv("LOCKOUT_MAX_FAILURES", 5)
}

func (Security) GetFailureWindow() time.Duration {
	return durationEnv("LOCKOUT_WINDOW_MINUTES", 15) * time.Minute
}

func (Security) GetLockoutDuration() time.Duration {
	return durationEnv("LOCKOUT_DURATION_MINUTES", 10) * time.Minute
}

// GetDevBypassEnabled gates the x-user-id header strategy. It requires both
// the DEV environment and an explicit opt-in so a stray env var in
// production can never open the bypass.
func (s Security) GetDevBypassEnabled() bool {
	if (EnvVars{}).GetEnv() != "DEV" {
		return false
	}
	return GetEnv("DEV_BYPASS_ENABLED", "false") == "true"
}

// GetTrustedProxy declares that an edge proxy sets X-Forwarded-For. Without
// it the header is client-controlled and must not feed lockout keys.
func (Security) GetTrustedProxy() bool {
	return GetEnv("TRUSTED_PROXY", "false") == "true"
}

func (Security) GetAdminIDs() []string {
	return splitEnvList("ADMIN_IDS")
}

func (Security) GetAdminEmails() []string {
	return splitEnvList("ADMIN_EMAILS")
}

func (Security) GetModeratorEmails() []string {
	return splitEnvList("MODERATOR_EMAILS")
}

func splitEnvList(envVar string) []string {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func intEnv(envVar string, defaultValue int) int {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
