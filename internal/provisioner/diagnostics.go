package provisioner

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/imamik/remotexec/internal/util/naming"
)

// diagnostics is the artifact written when a create fails.
type diagnostics struct {
	Record string   `yaml:"record"`
	Inputs Inputs   `yaml:"inputs"`
	Error  string   `yaml:"error"`
	Chain  []string `yaml:"chain"`
}

// writeDiagnostics records in and err in the diagnostics directory. A failure
// to write is logged and otherwise ignored so the create error is preserved.
func (e *Engine) writeDiagnostics(id string, in Inputs, cause error, log logr.Logger) string {
	data, err := yaml.Marshal(diagnostics{
		Record: id,
		Inputs: in,
		Error:  cause.Error(),
		Chain:  errorChain(cause),
	})
	if err != nil {
		log.Error(err, "Failed to encode diagnostics")
		return ""
	}

	path := filepath.Join(e.diagnosticsDir, naming.DiagnosticsFile(id))
	if err := os.MkdirAll(e.diagnosticsDir, 0o750); err != nil {
		log.Error(err, "Failed to create diagnostics directory", "dir", e.diagnosticsDir)
		return ""
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Error(err, "Failed to write diagnostics", "path", path)
		return ""
	}

	log.Info("Wrote diagnostics", "path", path)
	return path
}

// errorChain lists the messages of err and every error it wraps, depth first.
func errorChain(err error) []string {
	var chain []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		chain = append(chain, err.Error())
		switch x := err.(type) { //nolint:errorlint // walking the tree by hand
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(err))
		}
	}
	walk(err)
	return chain
}
