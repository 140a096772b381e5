package workflow

import (
	"strings"

	"github.com/leighmcculloch/fleet/internal/gitexec"
	"github.com/leighmcculloch/fleet/internal/recovery"
)

// Rung is the step of the escalation ladder that settled an operation.
type Rung int

const (
	FirstTry Rung = iota
	AfterRecovery
	Forced
	GaveUp
)

func (r Rung) String() string {
	switch r {
	case FirstTry:
		return "first try"
	case AfterRecovery:
		return "after recovery"
	case Forced:
		return "forced"
	default:
		return "gave up"
	}
}

// Ladder retries a failed git operation: recover the repository and retry
// once, then, if Forced is set, retry once more with the forced variant.
type Ladder struct {
	Recovery *recovery.Machine
	// ShouldRecover limits recovery to matching failures. Nil recovers on
	// every failure.
	ShouldRecover func(stderr string) bool
	// Forced is the last resort. Nil means there is none.
	Forced func() gitexec.Result
}

// Climb runs op and escalates until it succeeds or the ladder runs out.
func (l Ladder) Climb(dir string, op func() gitexec.Result) (gitexec.Result, Rung) {
	res := op()
	if res.OK {
		return res, FirstTry
	}
	if l.ShouldRecover != nil && !l.ShouldRecover(res.Stderr) {
		return res, GaveUp
	}
	if !l.Recovery.EnsureCommittable(dir) {
		return res, GaveUp
	}

	res = op()
	if res.OK {
		return res, AfterRecovery
	}
	if l.Forced == nil {
		return res, GaveUp
	}

	res = l.Forced()
	if res.OK {
		return res, Forced
	}
	return res, GaveUp
}

// indexProblem matches stderr of failures caused by repository state.
func indexProblem(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"index", "resolve", "lock", "untracked working tree files", "would be overwritten"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
