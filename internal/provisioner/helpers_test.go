package provisioner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/remotexec/internal/platform/ssh"
)

// writeTree creates files (slash-separated path -> content) under a fresh temp dir.
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

// writeKey creates a dummy private key file.
func writeKey(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "id_test")
	require.NoError(t, os.WriteFile(p, []byte("key-material"), 0o600))
	return p
}

type execution struct {
	target ssh.Target
	script string
}

// fakeExecutor records executions and returns a configured outcome.
type fakeExecutor struct {
	mu         sync.Mutex
	executions []execution

	result *ssh.Result
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, target ssh.Target, script []byte) (*ssh.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executions = append(f.executions, execution{target: target, script: string(script)})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ssh.Result{Stdout: "ok\n"}, nil
}

func (f *fakeExecutor) calls() []execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execution(nil), f.executions...)
}
