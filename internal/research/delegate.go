package research

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Delegate runs every task concurrently against r and waits for all of them
// to settle. One failure never cancels its siblings and nothing is retried.
// Outcomes are returned in task order. limit bounds concurrency; 0 means unbounded.
func Delegate(ctx context.Context, r SubAgent, tasks []string, limit int) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = runTask(ctx, r, task)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func runTask(ctx context.Context, r SubAgent, task string) (o Outcome) {
	o.Task = task
	defer func() {
		if p := recover(); p != nil {
			o.Finding = ""
			o.Err = fmt.Errorf("sub-task panicked: %v", p)
		}
	}()
	finding, err := r.Research(ctx, TaskInput(task))
	if err != nil {
		o.Err = err
		return o
	}
	o.Finding = finding
	return o
}
