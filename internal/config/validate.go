package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var knownProviders = map[string]bool{
	"deepseek":  true,
	"openai":    true,
	"anthropic": true,
}

// Validate checks Config for problems that would make the service misbehave.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Provider
	if !knownProviders[c.LLM.Provider] {
		errs = append(errs, fmt.Sprintf("LLM_PROVIDER must be one of deepseek, openai, anthropic, got %q", c.LLM.Provider))
	}
	if c.LLM.MemoryTemperature < 0 || c.LLM.MemoryTemperature > 2 {
		errs = append(errs, fmt.Sprintf("LLM_MEMORY_TEMPERATURE must be 0–2, got %g", c.LLM.MemoryTemperature))
	}
	if c.LLM.ResponseTemperature < 0 || c.LLM.ResponseTemperature > 2 {
		errs = append(errs, fmt.Sprintf("LLM_RESPONSE_TEMPERATURE must be 0–2, got %g", c.LLM.ResponseTemperature))
	}

	// Session store
	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if !c.Redis.Enabled {
			errs = append(errs, "SESSION_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		errs = append(errs, fmt.Sprintf("SESSION_BACKEND must be memory or redis, got %q", c.Session.Backend))
	}
	if c.Session.RecentWindow < 1 {
		errs = append(errs, "SESSION_RECENT_WINDOW must be at least 1")
	}
	if c.Session.CurrentWindow < 1 {
		errs = append(errs, "SESSION_CURRENT_WINDOW must be at least 1")
	}
	if c.Session.MaxHistory < c.Session.RecentWindow {
		errs = append(errs, "SESSION_MAX_HISTORY must not be smaller than SESSION_RECENT_WINDOW")
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, "SESSION_TTL must be positive")
	}

	// Audit trail needs both the bus and the database
	if c.Audit.Enabled {
		if c.NATS.URL == "" {
			errs = append(errs, "AUDIT_ENABLED=true requires NATS_URL")
		}
		if c.DB.Password == "" {
			errs = append(errs, "AUDIT_ENABLED=true requires DB_PASSWORD")
		}
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.Redis.Enabled && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}
	if c.Audit.Enabled && (c.DB.Port < 1 || c.DB.Port > 65535) {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}

	// API key: warn only, requests fail with a configuration error instead
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty, chat requests will fail until it is set")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
