package handlers

import (
	"fmt"
	"strings"

	"github.com/imamik/remotexec/internal/bundle"
	"github.com/imamik/remotexec/internal/util/naming"
)

// RenderOptions holds the flags of the render command.
type RenderOptions struct {
	ScriptDir       string
	SharedScriptDir string
	// Substitutions are <path>:<NAME>=<value> assignments.
	Substitutions []string
	Teardown      bool
	WorkDir       string
}

// Render handles the render command.
func Render(opts RenderOptions) error {
	subs, err := parseSubstitutions(opts.Substitutions)
	if err != nil {
		return err
	}

	primary, err := bundle.Load(opts.ScriptDir)
	if err != nil {
		return err
	}
	var shared *bundle.Bundle
	if opts.SharedScriptDir != "" {
		if shared, err = bundle.Load(opts.SharedScriptDir); err != nil {
			return err
		}
	}

	entry := bundle.DefaultEntrypoint
	if opts.Teardown {
		entry = bundle.DefaultTeardown
	}

	script, err := bundle.Build(primary, shared, bundle.Options{
		WorkDir:       opts.WorkDir,
		StagingDir:    naming.StagingDir(),
		Entrypoint:    entry,
		Substitutions: subs,
	})
	if err != nil {
		return err
	}

	printf("%s", script.String())
	return nil
}

// parseSubstitutions parses <path>:<NAME>=<value> assignments.
func parseSubstitutions(assignments []string) (bundle.Substitutions, error) {
	subs := make(bundle.Substitutions)
	for _, a := range assignments {
		file, rest, ok := strings.Cut(a, ":")
		if !ok || file == "" {
			return nil, fmt.Errorf("invalid substitution %q: expected <path>:<NAME>=<value>", a)
		}
		name, value, ok := strings.Cut(rest, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid substitution %q: expected <path>:<NAME>=<value>", a)
		}
		if subs[file] == nil {
			subs[file] = make(map[string]string)
		}
		subs[file][name] = value
	}
	return subs, nil
}
