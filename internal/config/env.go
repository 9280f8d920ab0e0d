package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides c with environment variables.
//
// Environment variables:
//   - NEXUS_STORAGE_MODE: local or remote
//   - NEXUS_LOCAL_PATH: SQLite database file
//   - NEXUS_POSTGRES_URL: remote store connection string
//   - NEXUS_OWNER: owner recorded on remote projects
//   - NEXUS_DEBOUNCE_WAIT, NEXUS_MAX_WAIT, NEXUS_ECHO_WINDOW: sync timings (Go durations)
//   - NEXUS_RELOAD_RATE, NEXUS_RELOAD_BURST: remote reload pacing
//   - NEXUS_MODEL, NEXUS_MAX_TOKENS: plan generation
//   - NEXUS_EVENT_RETENTION_DAYS, NEXUS_EVENT_PER_PROJECT_LIMIT: activity log bounds
//   - NEXUS_LOG_LEVEL, NEXUS_LOG_FORMAT: logging
//
// Returns an error if any environment variable has an invalid value.
func (c *Config) ApplyEnv() error {
	if err := parseEnvString("NEXUS_STORAGE_MODE", &c.Storage.Mode); err != nil {
		return err
	}
	if err := parseEnvString("NEXUS_LOCAL_PATH", &c.Storage.LocalPath); err != nil {
		return err
	}
	if err := parseEnvString("NEXUS_POSTGRES_URL", &c.Storage.PostgresURL); err != nil {
		return err
	}
	if err := parseEnvString("NEXUS_OWNER", &c.Storage.Owner); err != nil {
		return err
	}
	if err := parseEnvDuration("NEXUS_DEBOUNCE_WAIT", &c.Sync.DebounceWait); err != nil {
		return err
	}
	if err := parseEnvDuration("NEXUS_MAX_WAIT", &c.Sync.MaxWait); err != nil {
		return err
	}
	if err := parseEnvDuration("NEXUS_ECHO_WINDOW", &c.Sync.EchoWindow); err != nil {
		return err
	}
	if err := parseEnvFloat("NEXUS_RELOAD_RATE", &c.Sync.ReloadRate); err != nil {
		return err
	}
	if err := parseEnvInt("NEXUS_RELOAD_BURST", &c.Sync.ReloadBurst); err != nil {
		return err
	}
	if err := parseEnvString("NEXUS_MODEL", &c.Planner.Model); err != nil {
		return err
	}
	var maxTokens int
	if err := parseEnvInt("NEXUS_MAX_TOKENS", &maxTokens); err != nil {
		return err
	}
	if maxTokens != 0 {
		c.Planner.MaxTokens = int64(maxTokens)
	}
	if err := parseEnvFloat("NEXUS_HOURLY_COST_BUDGET", &c.Planner.HourlyCostBudget); err != nil {
		return err
	}
	if err := parseEnvInt("NEXUS_EVENT_RETENTION_DAYS", &c.Events.RetentionDays); err != nil {
		return err
	}
	if err := parseEnvInt("NEXUS_EVENT_PER_PROJECT_LIMIT", &c.Events.PerProjectLimit); err != nil {
		return err
	}
	if err := parseEnvString("NEXUS_LOG_LEVEL", &c.Log.Level); err != nil {
		return err
	}
	return parseEnvString("NEXUS_LOG_FORMAT", &c.Log.Format)
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a time.Duration from an environment variable
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
