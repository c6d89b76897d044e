package naming

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// tokenBytes is the entropy of a remote staging token (16 hex characters).
const tokenBytes = 8

// Token returns a random hex token of 2*n characters.
func Token(n int) string {
	b := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// StagingDir returns a fresh directory name for a bundle staged on a remote host.
func StagingDir() string {
	return Token(tokenBytes)
}

// CommandScript returns a fresh file name for the uploaded command script.
func CommandScript() string {
	return Token(tokenBytes) + ".sh"
}

// RecordID returns a new execution record identifier.
func RecordID() string {
	return uuid.NewString()
}

// DiagnosticsFile returns the artifact name written when a create fails.
func DiagnosticsFile(id string) string {
	return fmt.Sprintf("remote_execution_error_%s.txt", id)
}

// StateKey returns the object key of a unit's record inside a state prefix.
func StateKey(prefix, unit string) string {
	if prefix == "" {
		return unit + ".yaml"
	}
	return fmt.Sprintf("%s/%s.yaml", prefix, unit)
}
