package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/remotexec/internal/bundle"
)

// ErrNotFound is returned when a unit has no record.
var ErrNotFound = errors.New("record not found")

// Record is the persisted outcome of a successful create.
type Record struct {
	ID   string `yaml:"id"`
	Unit string `yaml:"unit"`

	Fingerprint     string               `yaml:"fingerprint"`
	ScriptDir       string               `yaml:"script_dir"`
	SharedScriptDir string               `yaml:"shared_script_dir,omitempty"`
	Substitutions   bundle.Substitutions `yaml:"substitutions,omitempty"`

	Host       string `yaml:"host"`
	JumpHost   string `yaml:"jump_host,omitempty"`
	User       string `yaml:"user,omitempty"`
	PrivateKey string `yaml:"private_key"`

	Stdout     string `yaml:"stdout"`
	Stderr     string `yaml:"stderr"`
	ExitStatus int    `yaml:"exit_status"`

	CreatedAt time.Time `yaml:"created_at"`
}

// Store persists one record per unit.
type Store interface {
	// Get returns the record of unit or ErrNotFound.
	Get(ctx context.Context, unit string) (*Record, error)
	// Put replaces the record of rec.Unit.
	Put(ctx context.Context, rec *Record) error
	// Delete discards the record of unit. Deleting a missing record is not an error.
	Delete(ctx context.Context, unit string) error
	// List returns the units that have a record, sorted.
	List(ctx context.Context) ([]string, error)
}

func marshal(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}
	if rec.Unit == "" {
		return nil, fmt.Errorf("record unit cannot be empty")
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %s: %w", rec.Unit, err)
	}
	return data, nil
}

func unmarshal(unit string, data []byte) (*Record, error) {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", unit, err)
	}
	return &rec, nil
}
