package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg, _ := Parse(nil)
	cfg.Units = []Unit{{
		Name:       "web",
		Host:       "10.0.0.5",
		PrivateKey: "/keys/id",
		ScriptDir:  "/srv/web",
	}}
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Units[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "name with separator",
			mutate:  func(c *Config) { c.Units[0].Name = "a/b" },
			wantErr: "must not contain path separators",
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Units[0].Host = "" },
			wantErr: "host is required",
		},
		{
			name:    "missing key",
			mutate:  func(c *Config) { c.Units[0].PrivateKey = "" },
			wantErr: "private_key is required",
		},
		{
			name:    "missing script dir",
			mutate:  func(c *Config) { c.Units[0].ScriptDir = "" },
			wantErr: "script_dir is required",
		},
		{
			name:    "duplicate unit",
			mutate:  func(c *Config) { c.Units = append(c.Units, c.Units[0]) },
			wantErr: `duplicate unit name "web"`,
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Transport.Port = 70000 },
			wantErr: "port must be between",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Transport.MaxAttempts = -1 },
			wantErr: "max_attempts must be positive",
		},
		{
			name:    "relative work dir",
			mutate:  func(c *Config) { c.Transport.WorkDir = "src" },
			wantErr: "work_dir must be an absolute remote path",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.State.Backend = "etcd" },
			wantErr: `unknown backend "etcd"`,
		},
		{
			name: "s3 without bucket",
			mutate: func(c *Config) {
				c.State.Backend = BackendS3
			},
			wantErr: "bucket is required",
		},
		{
			name: "s3 with half credentials",
			mutate: func(c *Config) {
				c.State.Backend = BackendS3
				c.State.Bucket = "state"
				c.State.AccessKey = "key"
			},
			wantErr: "must be set together",
		},
		{
			name: "s3 with default credential chain",
			mutate: func(c *Config) {
				c.State.Backend = BackendS3
				c.State.Bucket = "state"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
