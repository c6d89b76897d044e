package provisioner

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/remotexec/internal/state"
)

// Action is the transition Plan selects for a unit.
type Action string

const (
	// ActionCreate creates the first record of a unit.
	ActionCreate Action = "create"
	// ActionNone keeps the current record.
	ActionNone Action = "none"
	// ActionReplace creates a new record that supersedes the current one.
	ActionReplace Action = "replace"
	// ActionDeleteReplace tears down the current record, then creates a new one.
	ActionDeleteReplace Action = "delete-replace"
)

// Outcome describes a planned or applied transition.
type Outcome struct {
	Unit   string
	Action Action
	// Diff is set when a record existed.
	Diff *DiffResult
	// Previous is the record found in the store, if any.
	Previous *state.Record
	// Record is the record after the transition. Plan leaves it nil unless
	// the action is ActionNone.
	Record *state.Record
}

// Plan decides which transition Reconcile would apply to unit without
// running anything remotely.
func Plan(ctx context.Context, lc Lifecycle, store state.Store, unit string, in Inputs) (*Outcome, error) {
	out := &Outcome{Unit: unit}

	old, err := store.Get(ctx, unit)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			out.Action = ActionCreate
			return out, nil
		}
		return nil, fmt.Errorf("failed to load record of %s: %w", unit, err)
	}
	out.Previous = old

	diff, err := lc.Diff(ctx, old, in)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s: %w", unit, err)
	}
	out.Diff = diff

	switch {
	case !diff.Changes:
		out.Action = ActionNone
		out.Record = old
	case diff.DeleteBeforeReplace:
		out.Action = ActionDeleteReplace
	default:
		out.Action = ActionReplace
	}
	return out, nil
}

// Reconcile brings unit to the state declared by in: it creates a missing
// record, keeps an unchanged one and replaces a changed one. The new record
// is stored only after a successful create.
func Reconcile(ctx context.Context, lc Lifecycle, store state.Store, unit string, in Inputs) (*Outcome, error) {
	in.Unit = unit

	out, err := Plan(ctx, lc, store, unit, in)
	if err != nil {
		return nil, err
	}

	switch out.Action {
	case ActionNone:
		return out, nil
	case ActionDeleteReplace:
		if err := lc.Delete(ctx, out.Previous); err != nil {
			return nil, fmt.Errorf("failed to tear down %s on %s: %w", unit, out.Previous.Host, err)
		}
		// The old target is gone; a failed create must not leave its record behind.
		if err := store.Delete(ctx, unit); err != nil {
			return nil, fmt.Errorf("failed to discard record of %s: %w", unit, err)
		}
	}

	rec, err := lc.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", unit, err)
	}
	if err := store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store record of %s: %w", unit, err)
	}

	out.Record = rec
	return out, nil
}

// Destroy tears down unit and discards its record. It reports whether a
// record existed.
func Destroy(ctx context.Context, lc Lifecycle, store state.Store, unit string) (bool, error) {
	old, err := store.Get(ctx, unit)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load record of %s: %w", unit, err)
	}

	if err := lc.Delete(ctx, old); err != nil {
		return true, fmt.Errorf("failed to tear down %s on %s: %w", unit, old.Host, err)
	}
	if err := store.Delete(ctx, unit); err != nil {
		return true, fmt.Errorf("failed to discard record of %s: %w", unit, err)
	}
	return true, nil
}
