package provisioner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/remotexec/internal/bundle"
	"github.com/imamik/remotexec/internal/platform/ssh"
	"github.com/imamik/remotexec/internal/state"
	"github.com/imamik/remotexec/internal/util/naming"
)

// Inputs are the declared values of one provisioning unit.
type Inputs struct {
	// Unit names the provisioning unit.
	Unit string `yaml:"unit"`

	ScriptDir       string               `yaml:"script_dir"`
	SharedScriptDir string               `yaml:"shared_script_dir,omitempty"`
	Substitutions   bundle.Substitutions `yaml:"substitutions,omitempty"`

	Host     string `yaml:"host"`
	JumpHost string `yaml:"jump_host,omitempty"`
	User     string `yaml:"user,omitempty"`
	// PrivateKey is the path of the private key file. Its content is read at
	// execution time and never persisted.
	PrivateKey string `yaml:"private_key"`
}

// Lifecycle is the create/diff/delete contract of a provisioning unit.
type Lifecycle interface {
	Create(ctx context.Context, in Inputs) (*state.Record, error)
	Diff(ctx context.Context, old *state.Record, in Inputs) (*DiffResult, error)
	Delete(ctx context.Context, old *state.Record) error
}

// Executor delivers and runs a command script on a target.
// *ssh.Transport implements it.
type Executor interface {
	Execute(ctx context.Context, target ssh.Target, script []byte) (*ssh.Result, error)
}

var _ Executor = (*ssh.Transport)(nil)

// Engine implements Lifecycle on top of an Executor.
type Engine struct {
	executor Executor
	log      logr.Logger
	metrics  *Metrics

	workDir        string
	entryShell     string
	diagnosticsDir string
	// allowNonZeroExit keeps a non-zero exit from failing Create and Delete.
	allowNonZeroExit bool

	readKey func(path string) ([]byte, error)
	now     func() time.Time
}

var _ Lifecycle = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics records lifecycle metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithWorkDir sets the remote directory bundles are staged under.
func WithWorkDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.workDir = dir
		}
	}
}

// WithEntryShell sets the interpreter invocation for entry files.
func WithEntryShell(shell string) Option {
	return func(e *Engine) {
		if shell != "" {
			e.entryShell = shell
		}
	}
}

// WithDiagnosticsDir sets where failure artifacts are written.
func WithDiagnosticsDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.diagnosticsDir = dir
		}
	}
}

// WithAllowNonZeroExit makes a non-zero exit of the entry file succeed with
// the captured output instead of returning *ExitError.
func WithAllowNonZeroExit(allow bool) Option {
	return func(e *Engine) {
		e.allowNonZeroExit = allow
	}
}

// NewEngine creates an engine that runs bundles through executor.
func NewEngine(executor Executor, opts ...Option) *Engine {
	e := &Engine{
		executor:       executor,
		log:            logr.Discard(),
		workDir:        bundle.DefaultWorkDir,
		entryShell:     bundle.DefaultShell,
		diagnosticsDir: ".",
		readKey:        os.ReadFile,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create runs the entry file of in's bundle against in's target. On success
// it returns a new record; on failure it writes a diagnostics artifact and
// returns the error.
func (e *Engine) Create(ctx context.Context, in Inputs) (*state.Record, error) {
	id := naming.RecordID()
	log := e.log.WithValues("unit", in.Unit, "host", in.Host, "record", id)
	start := time.Now()

	rec, err := e.create(ctx, id, in, log)
	e.metrics.observe(opCreate, start, err)
	if err != nil {
		e.writeDiagnostics(id, in, err, log)
		return nil, err
	}

	log.Info("Created", "fingerprint", rec.Fingerprint, "exitStatus", rec.ExitStatus)
	return rec, nil
}

func (e *Engine) create(ctx context.Context, id string, in Inputs, log logr.Logger) (*state.Record, error) {
	fingerprint, err := bundle.Fingerprint(in.ScriptDir, in.SharedScriptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", in.ScriptDir, err)
	}

	log.Info("Running entry file", "entrypoint", bundle.DefaultEntrypoint)
	res, err := e.run(ctx, in, bundle.DefaultEntrypoint)
	if err != nil {
		return nil, err
	}

	return &state.Record{
		ID:              id,
		Unit:            in.Unit,
		Fingerprint:     fingerprint,
		ScriptDir:       in.ScriptDir,
		SharedScriptDir: in.SharedScriptDir,
		Substitutions:   in.Substitutions,
		Host:            in.Host,
		JumpHost:        in.JumpHost,
		User:            in.User,
		PrivateKey:      in.PrivateKey,
		Stdout:          res.Stdout,
		Stderr:          res.Stderr,
		ExitStatus:      res.ExitStatus,
		CreatedAt:       e.now().UTC(),
	}, nil
}

// Delete runs the teardown file of old's bundle against the stored target.
// A bundle without a teardown file is left alone: no connection is made.
func (e *Engine) Delete(ctx context.Context, old *state.Record) error {
	if old == nil {
		return nil
	}
	log := e.log.WithValues("unit", old.Unit, "host", old.Host, "record", old.ID)

	if !bundle.HasFile(old.ScriptDir, bundle.DefaultTeardown) {
		log.V(1).Info("No teardown file, nothing to run", "scriptDir", old.ScriptDir)
		return nil
	}

	log.Info("Running teardown file", "entrypoint", bundle.DefaultTeardown)
	start := time.Now()
	_, err := e.run(ctx, inputsOf(old), bundle.DefaultTeardown)
	e.metrics.observe(opDelete, start, err)
	return err
}

// run packages the bundle of in with entry as the entry file and executes it.
func (e *Engine) run(ctx context.Context, in Inputs, entry string) (*ssh.Result, error) {
	primary, err := bundle.Load(in.ScriptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	var shared *bundle.Bundle
	if in.SharedScriptDir != "" {
		if shared, err = bundle.Load(in.SharedScriptDir); err != nil {
			return nil, fmt.Errorf("failed to load shared bundle: %w", err)
		}
	}

	script, err := bundle.Build(primary, shared, bundle.Options{
		WorkDir:       e.workDir,
		StagingDir:    naming.StagingDir(),
		Entrypoint:    entry,
		Substitutions: in.Substitutions,
		Shell:         e.entryShell,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build command script: %w", err)
	}

	key, err := e.readKey(in.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	target := ssh.Target{
		Host:       in.Host,
		JumpHost:   in.JumpHost,
		User:       in.User,
		PrivateKey: key,
	}

	res, err := e.executor.Execute(ctx, target, []byte(script.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s on %s: %w", entry, in.Host, err)
	}

	if res.ExitStatus != 0 && !e.allowNonZeroExit {
		return nil, &ExitError{
			Host:       in.Host,
			Entrypoint: entry,
			Status:     res.ExitStatus,
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
		}
	}
	return res, nil
}

// inputsOf returns the inputs a record was created from.
func inputsOf(rec *state.Record) Inputs {
	return Inputs{
		Unit:            rec.Unit,
		ScriptDir:       rec.ScriptDir,
		SharedScriptDir: rec.SharedScriptDir,
		Substitutions:   rec.Substitutions,
		Host:            rec.Host,
		JumpHost:        rec.JumpHost,
		User:            rec.User,
		PrivateKey:      rec.PrivateKey,
	}
}
