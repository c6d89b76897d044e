// Package main is the entry point for the remotexec CLI.
//
// remotexec installs and runs directories of scripts on remote hosts,
// directly or through a jump host, and re-runs them when the scripts, their
// substitutions or their target change.
//
// Commands: apply, plan, destroy, render, fingerprint, keygen, version.
//
// For detailed usage information, run:
//
//	remotexec --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/remotexec/cmd/remotexec/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
