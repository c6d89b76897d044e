package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/remotexec/internal/bundle"
	"github.com/imamik/remotexec/internal/platform/s3"
)

// memoryObjects is an in-memory ObjectStore.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (m *memoryObjects) PutObject(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", s3.ErrNotFound, key)
	}
	return data, nil
}

func (m *memoryObjects) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memoryObjects) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		key, ok := strings.CutPrefix(k, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func sampleRecord(unit string) *Record {
	return &Record{
		ID:              "3f0c2f9e-8f1a-4c55-9d0e-4b1b2a7c1d00",
		Unit:            unit,
		Fingerprint:     "abc+def",
		ScriptDir:       "/srv/scripts/etcd",
		SharedScriptDir: "/srv/scripts/shared",
		Substitutions: bundle.Substitutions{
			"main.sh": {"HOST": "10.0.0.5", "PEERS": "a\nb"},
		},
		Host:       "10.0.0.5",
		JumpHost:   "203.0.113.7",
		PrivateKey: "/home/ops/.ssh/id_ed25519",
		Stdout:     "installed\n",
		Stderr:     "warning: 'quoted'\n",
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	return map[string]Store{
		"file":      fileStore,
		"s3":        NewS3Store(newMemoryObjects(), "bucket", "remotexec/prod"),
		"s3 no pfx": NewS3Store(newMemoryObjects(), "bucket", ""),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			want := sampleRecord("etcd-0")
			require.NoError(t, store.Put(ctx, want))

			got, err := store.Get(ctx, "etcd-0")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutSupersedes(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, sampleRecord("web")))

			next := &Record{ID: "second", Unit: "web", Fingerprint: "f2", Host: "10.0.0.9"}
			require.NoError(t, store.Put(ctx, next))

			got, err := store.Get(ctx, "web")
			require.NoError(t, err)
			assert.Equal(t, next, got, "no field of the previous record may survive")
		})
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			for _, unit := range []string{"web", "db", "cache"} {
				require.NoError(t, store.Put(ctx, sampleRecord(unit)))
			}

			units, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"cache", "db", "web"}, units)

			require.NoError(t, store.Delete(ctx, "db"))
			require.NoError(t, store.Delete(ctx, "db"), "deleting twice is not an error")

			units, err = store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"cache", "web"}, units)

			_, err = store.Get(ctx, "db")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutInvalid(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, store.Put(context.Background(), nil))
			assert.Error(t, store.Put(context.Background(), &Record{}))
		})
	}
}

func TestFileStore_Layout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), sampleRecord("web")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	data, err := os.ReadFile(filepath.Join(dir, "web.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "fingerprint: abc+def")
	assert.Contains(t, string(data), "jump_host: 203.0.113.7")

	units, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, units)
}

func TestFileStore_CorruptRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "web.yaml"), []byte("id: [unclosed"), 0o600))

	_, err = store.Get(context.Background(), "web")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "failed to parse record web")
}

func TestS3Store_Keys(t *testing.T) {
	t.Parallel()

	objects := newMemoryObjects()
	store := NewS3Store(objects, "bucket", "/remotexec/prod/")

	require.NoError(t, store.Put(context.Background(), sampleRecord("web")))
	require.NoError(t, objects.PutObject(context.Background(), "bucket", "remotexec/prod/nested/x.yaml", []byte("id: x")))

	_, ok := objects.objects["bucket/remotexec/prod/web.yaml"]
	assert.True(t, ok)

	units, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, units)
}
