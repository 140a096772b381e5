package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/leighmcculloch/fleet/internal/config"
)

// Kind tags an Outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// Outcome is the tagged result of one task.
type Outcome struct {
	Kind   Kind
	Reason string
}

// Success returns a successful outcome.
func Success() Outcome { return Outcome{Kind: KindSuccess} }

// Failure returns a failed outcome with a reason.
func Failure(reason string) Outcome { return Outcome{Kind: KindFailure, Reason: reason} }

// Timeout returns the outcome of a task that ran past its deadline.
func Timeout(after time.Duration) Outcome {
	return Outcome{Kind: KindTimeout, Reason: fmt.Sprintf("timed out after %s", after)}
}

// OK collapses the outcome for aggregate counts.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

// Operation runs one task. It should enforce timeout itself.
type Operation func(ctx context.Context, p config.Project, timeout time.Duration) Outcome

// Mode selects sequential or bounded-parallel execution.
type Mode struct {
	Width int
}

// Sequential runs tasks one at a time in input order.
func Sequential() Mode { return Mode{Width: 1} }

// BoundedParallel runs at most width tasks at once.
func BoundedParallel(width int) Mode {
	if width < 1 {
		width = 1
	}
	return Mode{Width: width}
}

// Parallel reports whether more than one task may run at once.
func (m Mode) Parallel() bool { return m.Width > 1 }

// TaskResult is the outcome of one project's task.
type TaskResult struct {
	Project  string
	Outcome  Outcome
	Duration time.Duration
}

// Summary aggregates a run.
type Summary struct {
	ID         string
	Operation  string
	Success    int
	Failure    int
	Total      int
	Results    []TaskResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the results that did not succeed, in result order.
func (s Summary) Failed() []TaskResult {
	var failed []TaskResult
	for _, r := range s.Results {
		if !r.Outcome.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}
