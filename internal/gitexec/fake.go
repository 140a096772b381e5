package gitexec

import (
	"strings"
	"sync"
)

// Fake is a scripted Gateway for tests. Responses are keyed by the space
// joined argument list. Each key holds a queue; results are consumed in
// order and the last one repeats. Unscripted commands succeed with no output.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]Result
	calls     []string
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{responses: make(map[string][]Result)}
}

// On scripts the results returned for a command.
func (f *Fake) On(command string, results ...Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = append(f.responses[command], results...)
	return f
}

// Run implements Gateway.
func (f *Fake) Run(dir string, args ...string) Result {
	key := strings.Join(args, " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)

	queue := f.responses[key]
	if len(queue) == 0 {
		return Result{OK: true}
	}
	res := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	return res
}

// Calls returns every command run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times command was run.
func (f *Fake) Count(command string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == command {
			n++
		}
	}
	return n
}

// Ok is shorthand for a successful result with stdout.
func Ok(stdout string) Result { return Result{OK: true, Stdout: stdout} }

// Fail is shorthand for a failed result with stderr.
func Fail(stderr string) Result { return Result{OK: false, Stderr: stderr} }
