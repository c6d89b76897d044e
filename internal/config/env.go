package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides transport limits and S3 credentials from environment
// variables. An unset or invalid variable leaves the current value.
//
// Environment Variables:
//   - REMOTEXEC_MAX_ATTEMPTS
//   - REMOTEXEC_RETRY_DELAY
//   - REMOTEXEC_DIAL_TIMEOUT
//   - REMOTEXEC_COMMAND_TIMEOUT
//   - REMOTEXEC_S3_ACCESS_KEY
//   - REMOTEXEC_S3_SECRET_KEY
func ApplyEnv(c *Config) {
	t := &c.Transport
	t.MaxAttempts = parseInt("REMOTEXEC_MAX_ATTEMPTS", t.MaxAttempts)
	t.RetryDelay = Duration(parseDuration("REMOTEXEC_RETRY_DELAY", t.RetryDelay.Std()))
	t.DialTimeout = Duration(parseDuration("REMOTEXEC_DIAL_TIMEOUT", t.DialTimeout.Std()))
	t.CommandTimeout = Duration(parseDuration("REMOTEXEC_COMMAND_TIMEOUT", t.CommandTimeout.Std()))

	if v := os.Getenv("REMOTEXEC_S3_ACCESS_KEY"); v != "" {
		c.State.AccessKey = v
	}
	if v := os.Getenv("REMOTEXEC_S3_SECRET_KEY"); v != "" {
		c.State.SecretKey = v
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
