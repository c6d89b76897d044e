package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/remotexec/internal/provisioner"
)

// Destroy handles the destroy command.
//
// It runs the teardown file of each selected unit's recorded bundle, if it
// has one, and discards the record. Units without a record are skipped.
func Destroy(ctx context.Context, configPath string, units []string) error {
	s, err := openSession(ctx, configPath, units, nil)
	if err != nil {
		return err
	}
	defer s.flush()

	for _, u := range s.units {
		existed, err := provisioner.Destroy(ctx, s.lc, s.store, u.Name)
		if err != nil {
			return fmt.Errorf("destroy failed: %s: %w", u.Name, err)
		}
		if existed {
			printf("%s: destroyed\n", u.Name)
		} else {
			printf("%s: no record\n", u.Name)
		}
	}
	return nil
}
