package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied by LoadFile.
const (
	DefaultUser           = "ec2-user"
	DefaultPort           = 22
	DefaultMaxAttempts    = 150
	DefaultRetryDelay     = 2 * time.Second
	DefaultDialTimeout    = 5 * time.Second
	DefaultSessionTimeout = 15 * time.Second
	DefaultCommandTimeout = time.Hour
	DefaultProbeAttempts  = 300
	DefaultProbeDelay     = time.Second
	DefaultWorkDir        = "/usr/local/src"
	DefaultStatePath      = ".remotexec/state"
	DefaultDiagnosticsDir = "."
)

// State backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config is the root of the configuration file.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	State     StateConfig     `yaml:"state"`

	// DiagnosticsDir receives an artifact for every failed create.
	DiagnosticsDir string `yaml:"diagnostics_dir"`
	// AllowNonZeroExit records a non-zero exit of an entry file instead of failing.
	AllowNonZeroExit bool `yaml:"allow_nonzero_exit"`

	Units []Unit `yaml:"units"`
}

// TransportConfig controls how hosts are reached.
type TransportConfig struct {
	User string `yaml:"user"`
	Port int    `yaml:"port"`

	MaxAttempts    int      `yaml:"max_attempts"`
	RetryDelay     Duration `yaml:"retry_delay"`
	DialTimeout    Duration `yaml:"dial_timeout"`
	SessionTimeout Duration `yaml:"session_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"`
	ProbeAttempts  int      `yaml:"probe_attempts"`
	ProbeDelay     Duration `yaml:"probe_delay"`

	// WorkDir is the remote directory bundles are staged under.
	WorkDir string `yaml:"work_dir"`
}

// StateConfig selects where execution records are stored.
type StateConfig struct {
	// Backend is "file" (default) or "s3".
	Backend string `yaml:"backend"`

	// Path is the record directory of the file backend.
	Path string `yaml:"path"`

	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Unit is one provisioning unit: a bundle and the host it runs on.
type Unit struct {
	Name string `yaml:"name"`

	Host     string `yaml:"host"`
	JumpHost string `yaml:"jump_host"`
	// User overrides transport.user for this unit.
	User       string `yaml:"user"`
	PrivateKey string `yaml:"private_key"`

	ScriptDir       string `yaml:"script_dir"`
	SharedScriptDir string `yaml:"shared_script_dir"`
	// Substitutions maps a bundle-relative file path to its placeholder values.
	Substitutions map[string]map[string]string `yaml:"substitutions"`
}

// Unit returns the unit called name.
func (c *Config) Unit(name string) (*Unit, error) {
	for i := range c.Units {
		if c.Units[i].Name == name {
			return &c.Units[i], nil
		}
	}
	return nil, fmt.Errorf("unit %q not found", name)
}

// Select returns the named units in the given order, or every unit when
// names is empty.
func (c *Config) Select(names []string) ([]Unit, error) {
	if len(names) == 0 {
		return c.Units, nil
	}
	units := make([]Unit, 0, len(names))
	for _, name := range names {
		u, err := c.Unit(name)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, nil
}

// Duration is a time.Duration written as a Go duration string ("2s", "1h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
