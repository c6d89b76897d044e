package ssh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/remotexec/internal/bundle"
	"github.com/imamik/remotexec/internal/util/naming"
	"github.com/imamik/remotexec/internal/util/retry"
)

// Conn is an established session to a target host.
type Conn interface {
	// Upload writes content to remotePath, relative to the login directory.
	Upload(ctx context.Context, remotePath string, content []byte, mode os.FileMode) error
	// Run executes command and captures its output.
	Run(ctx context.Context, command string) (*Result, error)
	// Remove deletes remotePath.
	Remove(ctx context.Context, remotePath string) error
	// Close releases the connection.
	Close() error
}

// Dialer performs a single connection attempt to a target.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Conn, error)
}

// AttemptObserver is told about every connection attempt.
type AttemptObserver func(host string, attempt int, err error)

// Transport delivers command scripts to targets and executes them.
type Transport struct {
	config   Config
	dialer   Dialer
	log      logr.Logger
	observer AttemptObserver
}

// Option configures a Transport.
type Option func(*Transport)

// WithDialer replaces the SSH dialer.
func WithDialer(d Dialer) Option {
	return func(t *Transport) {
		t.dialer = d
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// WithAttemptObserver registers a hook called after every connection attempt.
func WithAttemptObserver(fn AttemptObserver) Option {
	return func(t *Transport) {
		t.observer = fn
	}
}

// NewTransport creates a transport. Zero config fields take their defaults.
func NewTransport(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		config: cfg.withDefaults(),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.dialer == nil {
		t.dialer = newSSHDialer(t.config, t.log)
	}
	return t
}

// Config returns the effective configuration.
func (t *Transport) Config() Config {
	return t.config
}

// Execute connects to target, uploads script as a single file, runs it with
// elevated privileges and returns its captured output. The uploaded file is
// removed afterwards whatever the outcome.
//
// A non-zero exit status is not an error at this layer; it is reported in
// Result.ExitStatus. When the retry budget is exhausted the returned error
// wraps ErrUnreachable and nothing has been executed remotely.
func (t *Transport) Execute(ctx context.Context, target Target, script []byte) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	conn, err := t.connect(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	log := t.log.WithValues("host", target.Host)
	if target.JumpHost != "" {
		log = log.WithValues("jumpHost", target.JumpHost)
	}

	remotePath := naming.CommandScript()
	if err := conn.Upload(ctx, remotePath, script, 0o755); err != nil {
		// A partial upload may have left the file behind.
		t.cleanup(conn, remotePath, log)
		return nil, fmt.Errorf("failed to stage command script: %w", err)
	}
	defer t.cleanup(conn, remotePath, log)

	log.V(1).Info("Running command script", "script", remotePath, "bytes", len(script))

	res, err := conn.Run(ctx, t.config.Shell+" "+bundle.Quote(remotePath))
	if err != nil {
		return nil, fmt.Errorf("failed to run command script on %s: %w", target.Host, err)
	}

	log.V(1).Info("Command script finished", "exitStatus", res.ExitStatus)
	return res, nil
}

// connect dials the first hop until it answers or the budget is spent.
func (t *Transport) connect(ctx context.Context, target Target) (Conn, error) {
	hop := target.firstHop()
	attempt := 0
	var conn Conn

	err := retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		c, err := t.dialer.Dial(ctx, target)
		if t.observer != nil {
			t.observer(hop, attempt, err)
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	},
		retry.WithMaxAttempts(t.config.MaxAttempts),
		retry.WithDelay(t.config.RetryDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			t.log.V(1).Info("Connection attempt failed, retrying",
				"host", hop, "attempt", attempt, "delay", delay.String(), "error", err.Error())
		}),
	)
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrUnreachable, hop, t.config.MaxAttempts, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", hop, err)
	}

	return conn, nil
}

// cleanup removes the staged script, even if ctx has been cancelled.
func (t *Transport) cleanup(conn Conn, remotePath string, log logr.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), t.config.SessionTimeout)
	defer cancel()
	if err := conn.Remove(ctx, remotePath); err != nil {
		log.Info("Failed to remove command script", "script", remotePath, "error", err.Error())
	}
}
