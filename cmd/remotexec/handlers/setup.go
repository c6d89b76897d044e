package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/remotexec/internal/config"
	"github.com/imamik/remotexec/internal/logging"
	"github.com/imamik/remotexec/internal/platform/s3"
	"github.com/imamik/remotexec/internal/platform/ssh"
	"github.com/imamik/remotexec/internal/provisioner"
	"github.com/imamik/remotexec/internal/state"
)

// Factory function variables - can be replaced in tests.
var (
	// loadConfig reads the configuration file.
	loadConfig = config.LoadFile

	// newStore opens the state backend selected by the configuration.
	newStore = openStore

	// newLifecycle builds the provisioning engine for the configuration.
	newLifecycle = buildEngine

	// newLogger builds the logger from the global log options.
	newLogger = logging.New
)

var (
	// out receives command output.
	out   io.Writer = os.Stdout
	outMu sync.Mutex

	logOptsMu sync.Mutex
	logOpts   logging.Options
)

// SetLogOptions sets the options used for loggers created by handlers.
func SetLogOptions(opts logging.Options) {
	logOptsMu.Lock()
	defer logOptsMu.Unlock()
	logOpts = opts
}

// printf writes to out; units applied in parallel share it.
func printf(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	_, _ = fmt.Fprintf(out, format, args...)
}

func logger() (logr.Logger, func(), error) {
	logOptsMu.Lock()
	opts := logOpts
	logOptsMu.Unlock()
	return newLogger(opts)
}

// openStore returns the record store the configuration selects.
func openStore(ctx context.Context, cfg *config.Config) (state.Store, error) {
	switch cfg.State.Backend {
	case config.BackendS3:
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:     cfg.State.Endpoint,
			Region:       cfg.State.Region,
			AccessKey:    cfg.State.AccessKey,
			SecretKey:    cfg.State.SecretKey,
			UsePathStyle: cfg.State.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx, cfg.State.Bucket); err != nil {
			return nil, err
		}
		return state.NewS3Store(client, cfg.State.Bucket, cfg.State.Prefix), nil
	default:
		return state.NewFileStore(cfg.State.Path)
	}
}

// buildEngine wires the SSH transport into a provisioning engine.
func buildEngine(cfg *config.Config, log logr.Logger, metrics *provisioner.Metrics) provisioner.Lifecycle {
	transport := ssh.NewTransport(transportConfig(cfg.Transport),
		ssh.WithLogger(log.WithName("transport")),
		ssh.WithAttemptObserver(metrics.AttemptObserver()),
	)

	return provisioner.NewEngine(transport,
		provisioner.WithLogger(log.WithName("engine")),
		provisioner.WithMetrics(metrics),
		provisioner.WithWorkDir(cfg.Transport.WorkDir),
		provisioner.WithDiagnosticsDir(cfg.DiagnosticsDir),
		provisioner.WithAllowNonZeroExit(cfg.AllowNonZeroExit),
	)
}

func transportConfig(t config.TransportConfig) ssh.Config {
	return ssh.Config{
		User:           t.User,
		Port:           t.Port,
		MaxAttempts:    t.MaxAttempts,
		RetryDelay:     t.RetryDelay.Std(),
		DialTimeout:    t.DialTimeout.Std(),
		SessionTimeout: t.SessionTimeout.Std(),
		CommandTimeout: t.CommandTimeout.Std(),
		ProbeAttempts:  t.ProbeAttempts,
		ProbeDelay:     t.ProbeDelay.Std(),
	}
}

// inputsOf converts a configured unit to lifecycle inputs.
func inputsOf(u config.Unit) provisioner.Inputs {
	return provisioner.Inputs{
		Unit:            u.Name,
		ScriptDir:       u.ScriptDir,
		SharedScriptDir: u.SharedScriptDir,
		Substitutions:   u.Substitutions,
		Host:            u.Host,
		JumpHost:        u.JumpHost,
		User:            u.User,
		PrivateKey:      u.PrivateKey,
	}
}

// session bundles what every lifecycle command needs.
type session struct {
	cfg     *config.Config
	units   []config.Unit
	store   state.Store
	lc      provisioner.Lifecycle
	log     logr.Logger
	metrics *provisioner.Metrics
	flush   func()
}

func openSession(ctx context.Context, configPath string, names []string, metrics *provisioner.Metrics) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	units, err := cfg.Select(names)
	if err != nil {
		return nil, err
	}

	log, flush, err := logger()
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		flush()
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	return &session{
		cfg:     cfg,
		units:   units,
		store:   store,
		lc:      newLifecycle(cfg, log, metrics),
		log:     log,
		metrics: metrics,
		flush:   flush,
	}, nil
}
