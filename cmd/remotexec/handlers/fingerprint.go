package handlers

import "github.com/imamik/remotexec/internal/bundle"

// Fingerprint handles the fingerprint command.
func Fingerprint(scriptDir, sharedScriptDir string) error {
	fp, err := bundle.Fingerprint(scriptDir, sharedScriptDir)
	if err != nil {
		return err
	}
	printf("%s\n", fp)
	return nil
}
