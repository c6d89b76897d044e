package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes the tasks concurrently, at most limit at a time
// (limit <= 0 means no limit), and waits for all of them.
// A failing task does not stop the others; every failure is returned
// joined, in task order.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "rqlite-0", Func: reconcileUnit(units[0])},
//	    {Name: "rqlite-1", Func: reconcileUnit(units[1])},
//	}
//	if err := RunParallel(ctx, tasks, 4); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	errs := make([]error, len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}

// RunSequential executes the tasks one after another and stops at the first failure.
func RunSequential(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		if err := task.Func(ctx); err != nil {
			return fmt.Errorf("%s: %w", task.Name, err)
		}
	}
	return nil
}
