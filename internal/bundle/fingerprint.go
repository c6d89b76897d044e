package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// fingerprintSeparator joins the primary and shared digests.
const fingerprintSeparator = "+"

// Fingerprint returns a stable digest of the raw contents of root and, when
// shared is not empty, of the shared bundle. The two digests are computed
// separately and joined so each half stays recognizable. Substitution values,
// hosts and jump hosts never take part in it.
func Fingerprint(root, shared string) (string, error) {
	digest, err := hashDirectory(root)
	if err != nil {
		return "", err
	}

	if shared == "" {
		return digest, nil
	}

	sharedDigest, err := hashDirectory(shared)
	if err != nil {
		return "", err
	}

	return digest + fingerprintSeparator + sharedDigest, nil
}

// hashDirectory feeds every regular file under root into one SHA-256 accumulator.
func hashDirectory(root string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("failed to stat bundle %s: %w", root, err)
	}

	hasher := sha256.New()
	err := walkFiles(root, func(path, _ string, _ fs.FileInfo) error {
		// #nosec G304
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		if _, err := io.Copy(hasher, f); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", root, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
