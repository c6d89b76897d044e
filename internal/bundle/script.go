package bundle

import (
	"fmt"
	"path"
	"strings"
)

const (
	// DefaultWorkDir is the remote directory bundles are staged under.
	DefaultWorkDir = "/usr/local/src"
	// DefaultShell runs the entry file with elevated privileges.
	DefaultShell = "sudo bash"
)

// Options controls how a bundle is turned into a command script.
type Options struct {
	// WorkDir is the remote parent of the staging directory.
	WorkDir string
	// StagingDir is the name of the per-execution directory under WorkDir.
	StagingDir string
	// Entrypoint is the primary-bundle file to execute.
	Entrypoint string
	// Substitutions are applied per file while staging.
	Substitutions Substitutions
	// Shell is the interpreter invocation for the entry file.
	Shell string
}

// Script is a linear sequence of shell commands that stages a bundle,
// runs its entry file and removes the staged copy.
type Script struct {
	StagingDir string
	Entrypoint string
	Commands   []string
}

// String returns the script as newline-terminated text.
func (s *Script) String() string {
	return strings.Join(s.Commands, "\n") + "\n"
}

// Build assembles the command script for primary, with shared (optional)
// mounted under SharedDir.
//
// The entry file runs from the staged bundle root. Its exit status becomes
// the script's exit status, and the staged directory is removed whether it
// succeeded or not.
func Build(primary, shared *Bundle, opts Options) (*Script, error) {
	if opts.WorkDir == "" {
		opts.WorkDir = DefaultWorkDir
	}
	if opts.Entrypoint == "" {
		opts.Entrypoint = DefaultEntrypoint
	}
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	if opts.StagingDir == "" {
		return nil, fmt.Errorf("staging directory cannot be empty")
	}
	if !primary.Has(opts.Entrypoint) {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntrypointMissing, opts.Entrypoint, primary.Root)
	}

	w := &scriptWriter{dirs: make(map[string]bool)}
	w.emit("mkdir -p " + Quote(opts.WorkDir))
	w.emit("cd " + Quote(opts.WorkDir) + " || exit 1")

	w.mkdir(opts.StagingDir)
	for _, f := range primary.Files {
		vars := opts.Substitutions[f.Path]
		w.writeFile(path.Join(opts.StagingDir, f.Path), f, vars, f.Path == opts.Entrypoint)
	}

	if shared != nil {
		sharedRoot := path.Join(opts.StagingDir, SharedDir)
		w.mkdir(sharedRoot)
		for _, f := range shared.Files {
			vars, ok := opts.Substitutions[path.Join(SharedDir, f.Path)]
			if !ok {
				vars = opts.Substitutions[f.Path]
			}
			w.writeFile(path.Join(sharedRoot, f.Path), f, vars, false)
		}
	}

	w.emit("cd " + Quote(opts.StagingDir) + " || exit 1")
	w.emit(opts.Shell + " " + Quote(opts.Entrypoint))
	w.emit("status=$?")
	w.emit("cd " + Quote(opts.WorkDir))
	w.emit("rm -rf " + Quote(opts.StagingDir))
	w.emit("exit $status")

	return &Script{
		StagingDir: opts.StagingDir,
		Entrypoint: opts.Entrypoint,
		Commands:   w.commands,
	}, nil
}

type scriptWriter struct {
	commands []string
	dirs     map[string]bool
}

func (w *scriptWriter) emit(cmd string) {
	w.commands = append(w.commands, cmd)
}

// mkdir emits one directory creation per directory, the first time it is seen.
func (w *scriptWriter) mkdir(dir string) {
	if dir == "." || dir == "" || w.dirs[dir] {
		return
	}
	w.mkdir(path.Dir(dir))
	w.dirs[dir] = true
	w.emit("mkdir -p " + Quote(dir))
}

func (w *scriptWriter) writeFile(remote string, f File, vars map[string]string, entry bool) {
	w.mkdir(path.Dir(remote))

	target := Quote(remote)
	w.emit(": > " + target)

	lines, terminated := Render(f.Content, vars)
	for i, line := range lines {
		if i == len(lines)-1 && !terminated {
			w.emit("printf '%s' $'" + escapeANSIC(line) + "' >> " + target)
			continue
		}
		w.emit("printf '%s\\n' $'" + escapeANSIC(line) + "' >> " + target)
	}

	if entry || f.Executable() {
		w.emit("chmod +x " + target)
	}
	w.emit("echo " + Quote("finished writing "+remote))
	w.emit("du -sh " + target)
}
