package handlers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/imamik/remotexec/internal/config"
	"github.com/imamik/remotexec/internal/logging"
	"github.com/imamik/remotexec/internal/platform/ssh"
	"github.com/imamik/remotexec/internal/provisioner"
	"github.com/imamik/remotexec/internal/state"
)

// fakeExecutor records executions in place of the SSH transport.
type fakeExecutor struct {
	mu      sync.Mutex
	hosts   []string
	scripts []string
	fail    map[string]error
}

func (f *fakeExecutor) Execute(_ context.Context, target ssh.Target, script []byte) (*ssh.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, target.Host)
	f.scripts = append(f.scripts, string(script))
	if err := f.fail[target.Host]; err != nil {
		return nil, err
	}
	return &ssh.Result{Stdout: "ok\n"}, nil
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hosts)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// testEnv replaces the factories with in-process collaborators and returns
// the captured output.
type testEnv struct {
	cfg   *config.Config
	store state.Store
	exec  *fakeExecutor
	out   *bytes.Buffer
}

func setupEnv(t *testing.T, units ...config.Unit) *testEnv {
	t.Helper()

	key := filepath.Join(t.TempDir(), "id")
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))
	for i := range units {
		units[i].PrivateKey = key
	}

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.Units = units
	cfg.DiagnosticsDir = t.TempDir()

	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{cfg: cfg, store: store, exec: &fakeExecutor{}, out: &bytes.Buffer{}}

	origLoad, origStore, origLifecycle, origLogger, origOut :=
		loadConfig, newStore, newLifecycle, newLogger, out
	t.Cleanup(func() {
		loadConfig, newStore, newLifecycle, newLogger, out =
			origLoad, origStore, origLifecycle, origLogger, origOut
	})

	loadConfig = func(string) (*config.Config, error) { return env.cfg, nil }
	newStore = func(context.Context, *config.Config) (state.Store, error) { return env.store, nil }
	newLifecycle = func(cfg *config.Config, log logr.Logger, m *provisioner.Metrics) provisioner.Lifecycle {
		return provisioner.NewEngine(env.exec,
			provisioner.WithLogger(log),
			provisioner.WithMetrics(m),
			provisioner.WithDiagnosticsDir(cfg.DiagnosticsDir),
		)
	}
	newLogger = func(logging.Options) (logr.Logger, func(), error) {
		return logr.Discard(), func() {}, nil
	}
	out = env.out

	return env
}
