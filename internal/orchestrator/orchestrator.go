// Package orchestrator runs one operation against every project of a fleet,
// either sequentially or on a bounded worker pool, and aggregates the results.
//
// A task never stops the run: errors and panics are converted to failed
// results at the task boundary. There is no way to cancel in-flight tasks;
// per-task timeouts are enforced by the operation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leighmcculloch/fleet/internal/config"
	"github.com/leighmcculloch/fleet/internal/ui"
)

// Orchestrator runs operations over projects.
type Orchestrator struct {
	Log *ui.Logger
}

// New returns an Orchestrator logging to log.
func New(log *ui.Logger) *Orchestrator {
	if log == nil {
		log = ui.Discard()
	}
	return &Orchestrator{Log: log}
}

// Run executes op for every project. Sequential mode preserves input order
// in the results; parallel mode records results in completion order. Each
// project yields exactly one result, so Total always equals len(projects).
func (o *Orchestrator) Run(ctx context.Context, projects []config.Project, name string, op Operation, mode Mode, timeout time.Duration) Summary {
	s := Summary{
		ID:        uuid.NewString(),
		Operation: name,
		StartedAt: time.Now(),
	}

	if mode.Parallel() {
		o.Log.Section("%s: %d projects, max %d parallel", name, len(projects), mode.Width)
		s.Results = o.runParallel(ctx, projects, op, mode.Width, timeout)
	} else {
		o.Log.Section("%s: %d projects, sequential", name, len(projects))
		s.Results = make([]TaskResult, 0, len(projects))
		for i, p := range projects {
			o.Log.Printf("[%d/%d] %s", i+1, len(projects), p.Name())
			r := o.runTask(ctx, p, op, timeout)
			o.report(r)
			s.Results = append(s.Results, r)
		}
	}

	for _, r := range s.Results {
		if r.Outcome.OK() {
			s.Success++
		} else {
			s.Failure++
		}
	}
	s.Total = len(s.Results)
	s.FinishedAt = time.Now()
	return s
}

func (o *Orchestrator) runParallel(ctx context.Context, projects []config.Project, op Operation, width int, timeout time.Duration) []TaskResult {
	done := make(chan TaskResult, len(projects))

	var g errgroup.Group
	g.SetLimit(width)
	for _, p := range projects {
		g.Go(func() error {
			r := o.runTask(ctx, p, op, timeout)
			o.report(r)
			done <- r
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors
	close(done)

	results := make([]TaskResult, 0, len(projects))
	for r := range done {
		results = append(results, r)
	}
	return results
}

// runTask runs op and converts a panic into a failed result.
func (o *Orchestrator) runTask(ctx context.Context, p config.Project, op Operation, timeout time.Duration) (r TaskResult) {
	r.Project = p.Name()
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			r.Outcome = Failure(fmt.Sprintf("panic: %v", v))
		}
		r.Duration = time.Since(start)
	}()
	r.Outcome = op(ctx, p, timeout)
	return r
}

func (o *Orchestrator) report(r TaskResult) {
	elapsed := ui.Dim(fmt.Sprintf("(%.1fs)", r.Duration.Seconds()))
	switch r.Outcome.Kind {
	case KindSuccess:
		o.Log.Successf("%s %s", r.Project, elapsed)
	case KindTimeout:
		o.Log.Failf("%s %s %s", r.Project, ui.Yellow(r.Outcome.Reason), elapsed)
	default:
		o.Log.Failf("%s: %s %s", r.Project, r.Outcome.Reason, elapsed)
	}
}

// PrintSummary writes the aggregate counts and the failed projects.
func (o *Orchestrator) PrintSummary(s Summary) {
	o.Log.Section("%s results (run %s)", s.Operation, s.ID)
	o.Log.Printf("success: %d, failure: %d, total: %d", s.Success, s.Failure, s.Total)
	for _, r := range s.Failed() {
		o.Log.Printf("  %s %s (%s)", ui.Red("-"), r.Project, r.Outcome.Kind)
	}
	o.Log.Debugf("run %s took %s", s.ID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
