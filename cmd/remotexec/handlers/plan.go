package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/remotexec/internal/provisioner"
)

// Plan handles the plan command. Nothing is executed remotely.
func Plan(ctx context.Context, configPath string, units []string) error {
	s, err := openSession(ctx, configPath, units, nil)
	if err != nil {
		return err
	}
	defer s.flush()

	outcomes := make([]*provisioner.Outcome, 0, len(s.units))
	for _, u := range s.units {
		outcome, err := provisioner.Plan(ctx, s.lc, s.store, u.Name, inputsOf(u))
		if err != nil {
			return fmt.Errorf("plan failed: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}

	printf("%s", renderPlan(outcomes))
	return nil
}
