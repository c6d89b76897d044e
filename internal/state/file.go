package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const recordExt = ".yaml"

// FileStore keeps each record in <dir>/<unit>.yaml.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(unit string) string {
	return filepath.Join(s.dir, unit+recordExt)
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, unit string) (*Record, error) {
	data, err := os.ReadFile(s.path(unit))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, unit)
		}
		return nil, fmt.Errorf("failed to read record %s: %w", unit, err)
	}
	return unmarshal(unit, data)
}

// Put implements Store. The file is replaced atomically.
func (s *FileStore) Put(_ context.Context, rec *Record) error {
	data, err := marshal(rec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+rec.Unit+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary record: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write record %s: %w", rec.Unit, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.Unit, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.Unit)); err != nil {
		return fmt.Errorf("failed to replace record %s: %w", rec.Unit, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, unit string) error {
	if err := os.Remove(s.path(unit)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete record %s: %w", unit, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory %s: %w", s.dir, err)
	}

	var units []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		units = append(units, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(units)
	return units, nil
}
