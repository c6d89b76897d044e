package provisioner

import (
	"context"
	"fmt"

	"github.com/imamik/remotexec/internal/bundle"
	"github.com/imamik/remotexec/internal/state"
)

// Names of the tracked fields reported in DiffResult.Replaces.
const (
	FieldScriptDir     = "script_dir"
	FieldSubstitutions = "substitutions"
	FieldFingerprint   = "fingerprint"
	FieldHost          = "host"
	FieldJumpHost      = "jump_host"
)

// DiffResult is the outcome of comparing a record against current inputs.
type DiffResult struct {
	// Changes reports whether a replacement execution is required.
	Changes bool
	// Replaces lists the tracked fields that differ.
	Replaces []string
	// DeleteBeforeReplace requires the teardown on the old target to run
	// before the replacement is created.
	DeleteBeforeReplace bool
	// Fingerprint is the fingerprint of the current bundle.
	Fingerprint string
}

// Diff recomputes the fingerprint of in's bundle and compares it and the
// tracked inputs against old.
//
// A host change replaces with delete-before-create so the old host is torn
// down first. Any other change, a jump host change included, replaces
// without teardown.
func (e *Engine) Diff(_ context.Context, old *state.Record, in Inputs) (*DiffResult, error) {
	if old == nil {
		return nil, fmt.Errorf("no record to compare against")
	}

	fingerprint, err := bundle.Fingerprint(in.ScriptDir, in.SharedScriptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", in.ScriptDir, err)
	}

	res := &DiffResult{Fingerprint: fingerprint}
	if old.ScriptDir != in.ScriptDir {
		res.Replaces = append(res.Replaces, FieldScriptDir)
	}
	if !equalSubstitutions(old.Substitutions, in.Substitutions) {
		res.Replaces = append(res.Replaces, FieldSubstitutions)
	}
	if old.Fingerprint != fingerprint {
		res.Replaces = append(res.Replaces, FieldFingerprint)
	}
	if old.Host != in.Host {
		res.Replaces = append(res.Replaces, FieldHost)
		res.DeleteBeforeReplace = true
	}
	if old.JumpHost != in.JumpHost {
		res.Replaces = append(res.Replaces, FieldJumpHost)
	}
	res.Changes = len(res.Replaces) > 0

	e.log.V(1).Info("Compared record", "unit", old.Unit, "changes", res.Changes,
		"replaces", res.Replaces, "deleteBeforeReplace", res.DeleteBeforeReplace)
	return res, nil
}

// equalSubstitutions compares two maps, treating nil and empty alike at
// both levels.
func equalSubstitutions(a, b bundle.Substitutions) bool {
	if countFiles(a) != countFiles(b) {
		return false
	}
	for path, av := range a {
		if len(av) == 0 {
			continue
		}
		bv := b[path]
		if len(av) != len(bv) {
			return false
		}
		for name, value := range av {
			other, ok := bv[name]
			if !ok || other != value {
				return false
			}
		}
	}
	return true
}

func countFiles(s bundle.Substitutions) int {
	n := 0
	for _, vars := range s {
		if len(vars) > 0 {
			n++
		}
	}
	return n
}
