package handlers

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/remotexec/internal/config"
	"github.com/imamik/remotexec/internal/provisioner"
	"github.com/imamik/remotexec/internal/util/async"
)

// ApplyOptions holds the flags of the apply command.
type ApplyOptions struct {
	ConfigPath  string
	Units       []string
	Parallel    bool
	Concurrency int
	Prune       bool
	MetricsFile string
}

// Apply handles the apply command.
//
// Units are reconciled one after another, stopping at the first failure,
// or concurrently with Parallel, in which case every unit runs and all
// failures are reported.
func Apply(ctx context.Context, opts ApplyOptions) error {
	reg := prometheus.NewRegistry()
	metrics := provisioner.NewMetrics(reg)

	s, err := openSession(ctx, opts.ConfigPath, opts.Units, metrics)
	if err != nil {
		return err
	}
	defer s.flush()

	tasks := make([]async.Task, 0, len(s.units))
	for _, u := range s.units {
		tasks = append(tasks, async.Task{
			Name: u.Name,
			Func: func(ctx context.Context) error {
				return s.applyUnit(ctx, u)
			},
		})
	}

	if opts.Parallel {
		err = async.RunParallel(ctx, tasks, opts.Concurrency)
	} else {
		err = async.RunSequential(ctx, tasks)
	}

	if err == nil && opts.Prune {
		err = s.prune(ctx)
	}

	if opts.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(opts.MetricsFile, reg); werr != nil {
			s.log.Error(werr, "Failed to write metrics", "path", opts.MetricsFile)
		}
	}

	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}
	return nil
}

func (s *session) applyUnit(ctx context.Context, u config.Unit) error {
	outcome, err := provisioner.Reconcile(ctx, s.lc, s.store, u.Name, inputsOf(u))
	if err != nil {
		return err
	}
	s.metrics.RecordOutcome(outcome.Action)

	switch outcome.Action {
	case provisioner.ActionNone:
		printf("%s: up to date\n", u.Name)
	default:
		printf("%s: %s on %s (record %s)\n", u.Name, outcome.Action, u.Host, outcome.Record.ID)
	}
	return nil
}

// prune destroys stored records whose unit is no longer configured.
func (s *session) prune(ctx context.Context) error {
	stored, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	for _, name := range stored {
		if _, err := s.cfg.Unit(name); err == nil {
			continue
		}
		if _, err := provisioner.Destroy(ctx, s.lc, s.store, name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		printf("%s: pruned\n", name)
	}
	return nil
}
