package config

import (
	"fmt"
	"path"
	"strings"
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return fmt.Errorf("transport validation failed: %w", err)
	}
	if err := c.validateState(); err != nil {
		return fmt.Errorf("state validation failed: %w", err)
	}

	if len(c.Units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}
	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		if err := u.validate(); err != nil {
			return fmt.Errorf("unit %d (%s): %w", i, u.Name, err)
		}
		if seen[u.Name] {
			return fmt.Errorf("duplicate unit name %q", u.Name)
		}
		seen[u.Name] = true
	}
	return nil
}

func (c *Config) validateTransport() error {
	t := c.Transport
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", t.Port)
	}
	if t.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", t.MaxAttempts)
	}
	if t.ProbeAttempts < 1 {
		return fmt.Errorf("probe_attempts must be positive, got %d", t.ProbeAttempts)
	}
	if t.RetryDelay < 0 || t.ProbeDelay < 0 {
		return fmt.Errorf("retry_delay and probe_delay cannot be negative")
	}
	if t.DialTimeout <= 0 || t.SessionTimeout <= 0 || t.CommandTimeout <= 0 {
		return fmt.Errorf("dial_timeout, session_timeout and command_timeout must be positive")
	}
	if !path.IsAbs(t.WorkDir) {
		return fmt.Errorf("work_dir must be an absolute remote path, got %q", t.WorkDir)
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.Backend {
	case BackendFile:
		if c.State.Path == "" {
			return fmt.Errorf("path is required for the file backend")
		}
	case BackendS3:
		if c.State.Bucket == "" {
			return fmt.Errorf("bucket is required for the s3 backend")
		}
		if (c.State.AccessKey == "") != (c.State.SecretKey == "") {
			return fmt.Errorf("access_key and secret_key must be set together")
		}
	default:
		return fmt.Errorf("unknown backend %q (must be %s or %s)", c.State.Backend, BackendFile, BackendS3)
	}
	return nil
}

func (u Unit) validate() error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(u.Name, `/\`) || strings.HasPrefix(u.Name, ".") {
		return fmt.Errorf("name %q must not contain path separators or start with a dot", u.Name)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if u.PrivateKey == "" {
		return fmt.Errorf("private_key is required")
	}
	if u.ScriptDir == "" {
		return fmt.Errorf("script_dir is required")
	}
	return nil
}
