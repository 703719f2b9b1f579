package config

import (
	"strconv"
	"time"
)

type TokenConfig interface {
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type Token struct{}

var _ TokenConfig = Token{}

// GetSigningSecret returns the HMAC key for access tokens. An empty value
// is a startup error, never a silent fallback.
func (Token) GetSigningSecret() string {
	return GetEnv("TOKEN_SIGNING_SECRET", "")
}

func (Token) GetAccessTokenExpiry() time.Duration {
	return durationEnv("ACCESS_TOKEN_TTL_MINUTES", 15) * time.Minute
}

func (Token) GetRefreshTokenExpiry() time.Duration {
	return durationEnv("REFRESH_TOKEN_TTL_DAYS", 30) * 24 * time.Hour
}

func durationEnv(envVar string, defaultValue int) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return time.Duration(defaultValue)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return time.Duration(defaultValue)
	}
	return time.Duration(parsed)
}
