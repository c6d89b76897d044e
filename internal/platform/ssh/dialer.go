package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/remotexec/internal/util/retry"
)

// sshDialer opens real SSH connections.
type sshDialer struct {
	config Config
	log    logr.Logger
	// dialNet opens the first-hop TCP connection.
	dialNet func(ctx context.Context, network, addr string) (net.Conn, error)
}

func newSSHDialer(cfg Config, log logr.Logger) *sshDialer {
	d := &net.Dialer{}
	return &sshDialer{config: cfg, log: log, dialNet: d.DialContext}
}

// Dial connects to the target. Through a jump host it first connects to the
// jump host and then probes the target until it accepts a session.
func (d *sshDialer) Dial(ctx context.Context, target Target) (Conn, error) {
	signer, err := ssh.ParsePrivateKey(target.PrivateKey)
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("failed to parse private key: %w", err))
	}

	clientConfig := &ssh.ClientConfig{
		User:            target.user(d.config.User),
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: d.config.HostKeyCallback,
		Timeout:         d.config.DialTimeout,
	}

	first, err := d.handshake(ctx, d.dialNet, address(target.firstHop(), d.config.Port), clientConfig)
	if err != nil {
		return nil, err
	}

	if target.JumpHost == "" {
		return d.newConn(first), nil
	}

	inner, err := d.probe(ctx, first, address(target.Host, d.config.Port), clientConfig)
	if err != nil {
		_ = first.Close()
		return nil, retry.Fatal(fmt.Errorf("target %s not ready behind %s: %w", target.Host, target.JumpHost, err))
	}

	conn := d.newConn(inner)
	conn.closers = append(conn.closers, first)
	return conn, nil
}

// probe opens the inner connection through jump and runs a no-op command,
// repeating until it succeeds so a target that is still booting is tolerated.
func (d *sshDialer) probe(ctx context.Context, jump *ssh.Client, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	var inner *ssh.Client

	err := retry.Do(ctx, func(ctx context.Context) error {
		client, err := d.handshake(ctx, jump.DialContext, addr, cfg)
		if err != nil {
			return err
		}

		session, err := client.NewSession()
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to open probe session: %w", err)
		}
		err = session.Run(probeCommand)
		_ = session.Close()
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("probe command failed: %w", err)
		}

		inner = client
		return nil
	},
		retry.WithMaxAttempts(d.config.ProbeAttempts),
		retry.WithDelay(d.config.ProbeDelay),
		retry.WithOnRetry(func(attempt int, err error, _ time.Duration) {
			d.log.V(1).Info("Target not ready yet", "address", addr, "attempt", attempt, "error", err.Error())
		}),
	)
	if err != nil {
		return nil, err
	}

	return inner, nil
}

// handshake opens a transport connection with dial and performs the SSH
// handshake, bounded by the dial timeout.
func (d *sshDialer) handshake(
	ctx context.Context,
	dial func(ctx context.Context, network, addr string) (net.Conn, error),
	addr string,
	cfg *ssh.ClientConfig,
) (*ssh.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.DialTimeout)
	defer cancel()

	netConn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	type handshakeResult struct {
		client *ssh.Client
		err    error
	}
	done := make(chan handshakeResult, 1)

	go func() {
		c, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
		if err != nil {
			done <- handshakeResult{err: err}
			return
		}
		done <- handshakeResult{client: ssh.NewClient(c, chans, reqs)}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			_ = netConn.Close()
			return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, res.err)
		}
		return res.client, nil
	case <-ctx.Done():
		// Unblocks the handshake goroutine.
		_ = netConn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, ctx.Err())
	}
}

func (d *sshDialer) newConn(client *ssh.Client) *sshConn {
	return &sshConn{client: client, config: d.config}
}

// sshConn is an established connection to the target.
type sshConn struct {
	client  *ssh.Client
	sftp    *sftp.Client
	config  Config
	closers []io.Closer
}

func (c *sshConn) sftpClient() (*sftp.Client, error) {
	if c.sftp != nil {
		return c.sftp, nil
	}
	client, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to start sftp: %w", err)
	}
	c.sftp = client
	return client, nil
}

// Upload writes content to a path relative to the login directory.
func (c *sshConn) Upload(_ context.Context, remotePath string, content []byte, mode os.FileMode) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	f, err := client.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", remotePath, err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", remotePath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", remotePath, err)
	}

	if err := client.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", remotePath, err)
	}
	return nil
}

// Remove deletes a previously uploaded file.
func (c *sshConn) Remove(_ context.Context, remotePath string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}
	if err := client.Remove(remotePath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", remotePath, err)
	}
	return nil
}

// Run executes command and captures its output until the remote process
// exits. A non-zero exit status is reported in the result, not as an error.
func (c *sshConn) Run(ctx context.Context, command string) (*Result, error) {
	session, err := c.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	// Wait returns once the exit status arrived and both streams are drained.
	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	timer := time.NewTimer(c.config.CommandTimeout)
	defer timer.Stop()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("remote command cancelled: %w", ctx.Err())
	case <-timer.C:
		_ = session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("%w after %s", ErrCommandTimeout, c.config.CommandTimeout)
	}

	res := &Result{
		Stdout: strings.ToValidUTF8(stdout.String(), "\uFFFD"),
		Stderr: strings.ToValidUTF8(stderr.String(), "\uFFFD"),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			return res, nil
		}
		return res, fmt.Errorf("remote command failed: %w", err)
	}

	return res, nil
}

// newSession opens a session channel, bounded by the session timeout.
func (c *sshConn) newSession(ctx context.Context) (*ssh.Session, error) {
	type sessionResult struct {
		session *ssh.Session
		err     error
	}
	done := make(chan sessionResult, 1)
	go func() {
		s, err := c.client.NewSession()
		done <- sessionResult{session: s, err: err}
	}()

	timer := time.NewTimer(c.config.SessionTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to create SSH session: %w", res.err)
		}
		return res.session, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to create SSH session: %w", ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("failed to create SSH session within %s", c.config.SessionTimeout)
	}
}

// Close releases the sftp client, the target connection and any jump host connection.
func (c *sshConn) Close() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
	}
	errs = append(errs, c.client.Close())
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
