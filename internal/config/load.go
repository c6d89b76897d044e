package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads, completes and validates the configuration at path.
// Relative local paths in the file are resolved against its directory.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.resolvePaths(filepath.Dir(path))
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes data and fills in defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	t := &c.Transport
	if t.User == "" {
		t.User = DefaultUser
	}
	if t.Port == 0 {
		t.Port = DefaultPort
	}
	if t.MaxAttempts == 0 {
		t.MaxAttempts = DefaultMaxAttempts
	}
	if t.RetryDelay == 0 {
		t.RetryDelay = Duration(DefaultRetryDelay)
	}
	if t.DialTimeout == 0 {
		t.DialTimeout = Duration(DefaultDialTimeout)
	}
	if t.SessionTimeout == 0 {
		t.SessionTimeout = Duration(DefaultSessionTimeout)
	}
	if t.CommandTimeout == 0 {
		t.CommandTimeout = Duration(DefaultCommandTimeout)
	}
	if t.ProbeAttempts == 0 {
		t.ProbeAttempts = DefaultProbeAttempts
	}
	if t.ProbeDelay == 0 {
		t.ProbeDelay = Duration(DefaultProbeDelay)
	}
	if t.WorkDir == "" {
		t.WorkDir = DefaultWorkDir
	}

	if c.State.Backend == "" {
		c.State.Backend = BackendFile
	}
	if c.State.Backend == BackendFile && c.State.Path == "" {
		c.State.Path = DefaultStatePath
	}
	if c.DiagnosticsDir == "" {
		c.DiagnosticsDir = DefaultDiagnosticsDir
	}
}

// resolvePaths makes relative local paths relative to base.
func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	if c.State.Backend == BackendFile {
		c.State.Path = resolve(c.State.Path)
	}
	c.DiagnosticsDir = resolve(c.DiagnosticsDir)
	for i := range c.Units {
		u := &c.Units[i]
		u.ScriptDir = resolve(u.ScriptDir)
		u.SharedScriptDir = resolve(u.SharedScriptDir)
		u.PrivateKey = resolve(expandHome(u.PrivateKey))
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
