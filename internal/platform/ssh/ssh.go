package ssh

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultPort           = 22
	defaultUser           = "ec2-user"
	defaultShell          = "sudo bash"
	defaultMaxAttempts    = 150
	defaultRetryDelay     = 2 * time.Second
	defaultDialTimeout    = 5 * time.Second
	defaultSessionTimeout = 15 * time.Second
	defaultCommandTimeout = time.Hour
	defaultProbeAttempts  = 300
	defaultProbeDelay     = time.Second
	probeCommand          = "true"
)

var (
	// ErrUnreachable is returned when no connection attempt succeeded within the retry budget.
	// No remote command has been executed when it is returned.
	ErrUnreachable = errors.New("host unreachable")
	// ErrCommandTimeout is returned when a remote command outlives the command timeout.
	ErrCommandTimeout = errors.New("remote command timed out")
)

// Config holds transport configuration.
type Config struct {
	// User is the login user on both the jump host and the target.
	User string
	// Port is used for hosts that do not carry an explicit port.
	Port int

	// MaxAttempts bounds the connection attempts to the first hop.
	MaxAttempts int
	// RetryDelay is the pause between two connection attempts.
	RetryDelay time.Duration
	// DialTimeout bounds a single connection attempt, handshake included.
	DialTimeout time.Duration
	// SessionTimeout bounds opening a session channel.
	SessionTimeout time.Duration
	// CommandTimeout bounds a single remote command.
	CommandTimeout time.Duration

	// ProbeAttempts bounds the readiness probe through a jump host.
	ProbeAttempts int
	// ProbeDelay is the pause between two readiness probes.
	ProbeDelay time.Duration

	// Shell runs the uploaded command script.
	Shell string

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used (suitable for freshly booted hosts).
	HostKeyCallback ssh.HostKeyCallback
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.User == "" {
		c.User = defaultUser
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = defaultSessionTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.ProbeAttempts == 0 {
		c.ProbeAttempts = defaultProbeAttempts
	}
	if c.ProbeDelay == 0 {
		c.ProbeDelay = defaultProbeDelay
	}
	if c.Shell == "" {
		c.Shell = defaultShell
	}
	if c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Targets are freshly provisioned hosts
	}
	return c
}

// Target describes where a script runs.
type Target struct {
	// Host is the target address. It is reached through JumpHost when set.
	Host string
	// JumpHost is the optional intermediary address.
	JumpHost string
	// User overrides Config.User for this target.
	User string
	// PrivateKey authenticates against both hops.
	PrivateKey []byte
}

func (t Target) user(fallback string) string {
	if t.User != "" {
		return t.User
	}
	return fallback
}

// Validate checks the target is usable.
func (t Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("target host cannot be empty")
	}
	if len(t.PrivateKey) == 0 {
		return fmt.Errorf("target private key cannot be empty")
	}
	return nil
}

// firstHop returns the host the caller connects to.
func (t Target) firstHop() string {
	if t.JumpHost != "" {
		return t.JumpHost
	}
	return t.Host
}

// Result is the captured outcome of a remote command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// address returns host:port, keeping a port already present in host.
func address(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
