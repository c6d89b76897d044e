package ssh

import (
	"context"
	"errors"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/remotexec/internal/util/retry"
)

// fakeConn records every remote operation.
type fakeConn struct {
	mu       sync.Mutex
	ops      []string
	uploaded map[string][]byte
	result   *Result
	runErr   error
	closed   bool
}

func (c *fakeConn) Upload(_ context.Context, remotePath string, content []byte, mode os.FileMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "upload "+remotePath)
	if c.uploaded == nil {
		c.uploaded = make(map[string][]byte)
	}
	c.uploaded[remotePath] = content
	if mode != 0o755 {
		return errors.New("unexpected mode")
	}
	return nil
}

func (c *fakeConn) Run(_ context.Context, command string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "run "+command)
	if c.runErr != nil {
		return nil, c.runErr
	}
	if c.result == nil {
		return &Result{}, nil
	}
	return c.result, nil
}

func (c *fakeConn) Remove(_ context.Context, remotePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "remove "+remotePath)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer fails until the succeedOn-th attempt (0 = never).
type fakeDialer struct {
	succeedOn int
	attempts  int
	err       error
	conn      *fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ Target) (Conn, error) {
	d.attempts++
	if d.err != nil {
		return nil, d.err
	}
	if d.succeedOn == 0 || d.attempts < d.succeedOn {
		return nil, errors.New("connection refused")
	}
	return d.conn, nil
}

func testTarget() Target {
	return Target{Host: "10.0.1.5", PrivateKey: []byte("key")}
}

func TestTransport_Execute_RetryBound(t *testing.T) {
	t.Parallel()
	const bound = 5
	const delay = 10 * time.Millisecond

	tests := []struct {
		name      string
		succeedOn int
		wantErr   bool
	}{
		{"first attempt", 1, false},
		{"third attempt", 3, false},
		{"last attempt", bound, false},
		{"never within bound", bound + 1, true},
		{"never", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			conn := &fakeConn{}
			dialer := &fakeDialer{succeedOn: tt.succeedOn, conn: conn}
			var failed int
			tr := NewTransport(Config{MaxAttempts: bound, RetryDelay: delay},
				WithDialer(dialer),
				WithAttemptObserver(func(_ string, _ int, err error) {
					if err != nil {
						failed++
					}
				}))

			start := time.Now()
			res, err := tr.Execute(context.Background(), testTarget(), []byte("echo hi\n"))
			elapsed := time.Since(start)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnreachable)
				assert.Nil(t, res)
				assert.Equal(t, bound, dialer.attempts)
				assert.Empty(t, conn.ops, "no remote operation may run")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tt.succeedOn, dialer.attempts)
			assert.Equal(t, tt.succeedOn-1, failed)
			assert.GreaterOrEqual(t, elapsed, time.Duration(tt.succeedOn-1)*delay)
			assert.True(t, conn.closed)
		})
	}
}

func TestTransport_Execute_StagesRunsAndRemoves(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{result: &Result{Stdout: "out", Stderr: "err", ExitStatus: 0}}
	tr := NewTransport(Config{}, WithDialer(&fakeDialer{succeedOn: 1, conn: conn}))

	res, err := tr.Execute(context.Background(), testTarget(), []byte("echo hi\n"))
	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)

	require.Len(t, conn.ops, 3)
	m := regexp.MustCompile(`^upload ([0-9a-f]{16}\.sh)$`).FindStringSubmatch(conn.ops[0])
	require.NotNil(t, m, conn.ops[0])
	script := m[1]
	assert.Equal(t, "run sudo bash '"+script+"'", conn.ops[1])
	assert.Equal(t, "remove "+script, conn.ops[2])
	assert.Equal(t, []byte("echo hi\n"), conn.uploaded[script])
}

func TestTransport_Execute_NonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{result: &Result{Stdout: "partial", ExitStatus: 2}}
	tr := NewTransport(Config{}, WithDialer(&fakeDialer{succeedOn: 1, conn: conn}))

	res, err := tr.Execute(context.Background(), testTarget(), []byte("exit 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitStatus)
	assert.Equal(t, "partial", res.Stdout)
}

func TestTransport_Execute_RemovesScriptWhenRunFails(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{runErr: ErrCommandTimeout}
	tr := NewTransport(Config{}, WithDialer(&fakeDialer{succeedOn: 1, conn: conn}))

	_, err := tr.Execute(context.Background(), testTarget(), []byte("sleep 1000\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandTimeout)
	require.Len(t, conn.ops, 3)
	assert.Regexp(t, `^remove [0-9a-f]{16}\.sh$`, conn.ops[2])
	assert.True(t, conn.closed)
}

func TestTransport_Execute_FatalDialErrorStopsRetrying(t *testing.T) {
	t.Parallel()
	dialer := &fakeDialer{err: retry.Fatal(errors.New("failed to parse private key"))}
	tr := NewTransport(Config{MaxAttempts: 10, RetryDelay: time.Millisecond}, WithDialer(dialer))

	_, err := tr.Execute(context.Background(), testTarget(), []byte("x"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, 1, dialer.attempts)
}

func TestTransport_Execute_InvalidTarget(t *testing.T) {
	t.Parallel()
	dialer := &fakeDialer{succeedOn: 1, conn: &fakeConn{}}
	tr := NewTransport(Config{}, WithDialer(dialer))

	_, err := tr.Execute(context.Background(), Target{PrivateKey: []byte("k")}, nil)
	assert.EqualError(t, err, "target host cannot be empty")

	_, err = tr.Execute(context.Background(), Target{Host: "h"}, nil)
	assert.EqualError(t, err, "target private key cannot be empty")
	assert.Zero(t, dialer.attempts)
}

func TestTransport_Execute_ObserverSeesFirstHop(t *testing.T) {
	t.Parallel()
	var hosts []string
	tr := NewTransport(Config{}, WithDialer(&fakeDialer{succeedOn: 1, conn: &fakeConn{}}),
		WithAttemptObserver(func(host string, _ int, _ error) { hosts = append(hosts, host) }))

	target := testTarget()
	target.JumpHost = "3.120.0.1"
	_, err := tr.Execute(context.Background(), target, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"3.120.0.1"}, hosts)
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := NewTransport(Config{}).Config()

	assert.Equal(t, defaultUser, cfg.User)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, 150, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, time.Hour, cfg.CommandTimeout)
	assert.Equal(t, "sudo bash", cfg.Shell)
	assert.NotNil(t, cfg.HostKeyCallback)
}

func TestAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10.0.0.5:22", address("10.0.0.5", 22))
	assert.Equal(t, "10.0.0.5:2222", address("10.0.0.5:2222", 22))
	assert.Equal(t, "[::1]:22", address("::1", 22))
}
