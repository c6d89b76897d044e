package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DefaultEntrypoint is executed when a bundle is created.
	DefaultEntrypoint = "main.sh"
	// DefaultTeardown is executed, when present, before a bundle's record is discarded.
	DefaultTeardown = "delete.sh"
	// SharedDir is where the shared bundle is mounted inside the primary one.
	SharedDir = "shared"
)

// ErrEntrypointMissing is returned when the requested entry file is not part of the bundle.
var ErrEntrypointMissing = errors.New("entry file not found in bundle")

// Substitutions maps a slash-separated file path, relative to the bundle
// root, to the placeholder values applied to that file.
type Substitutions map[string]map[string]string

// File is a regular file of a bundle.
type File struct {
	// Path is slash-separated and relative to the bundle root.
	Path    string
	Content []byte
	Mode    fs.FileMode
}

// Executable reports whether the local file carries an executable bit.
func (f File) Executable() bool {
	return f.Mode&0o111 != 0
}

// Bundle is an ordered set of files rooted at a local directory.
type Bundle struct {
	Root  string
	Files []File
}

// Load reads every regular file under root in lexical walk order, following
// symlinks to files. Any unreadable file fails the whole load.
func Load(root string) (*Bundle, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bundle %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle %s is not a directory", root)
	}

	b := &Bundle{Root: root}
	err = walkFiles(root, func(path, rel string, info fs.FileInfo) error {
		// #nosec G304
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		b.Files = append(b.Files, File{Path: rel, Content: content, Mode: info.Mode()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Has reports whether the bundle contains the file at the slash-separated path.
func (b *Bundle) Has(path string) bool {
	for _, f := range b.Files {
		if f.Path == path {
			return true
		}
	}
	return false
}

// HasFile reports whether root contains a regular file, or a symlink to one,
// at the slash-separated path without loading the bundle. It agrees with Load.
func HasFile(root, path string) bool {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(path)))
	return err == nil && info.Mode().IsRegular()
}

// walkFiles calls fn for every regular file under root, in lexical order.
// Symlinks are resolved: a link to a regular file is visited with the target's
// info, a link to a directory is not descended into, and a dangling link is an error.
func walkFiles(root string, fn func(path, rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		var info fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", path, err)
			}
		} else {
			info, err = d.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}
