// Package gitexec runs single git commands against a working directory.
package gitexec

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/leighmcculloch/fleet/internal/ui"
)

// Result is the outcome of one git command. A non-zero exit is a normal
// result with OK false, never an error.
type Result struct {
	OK     bool
	Stdout string
	Stderr string
}

// Gateway executes one git command in dir. Implementations do not retry.
type Gateway interface {
	Run(dir string, args ...string) Result
}

// Exec runs the git binary directly, without a shell.
type Exec struct {
	// Binary defaults to "git".
	Binary string
	// Log receives a trace of every command in verbose mode. May be nil.
	Log *ui.Logger
}

// Run implements Gateway.
func (e Exec) Run(dir string, args ...string) Result {
	bin := e.Binary
	if bin == "" {
		bin = "git"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(bin, append([]string{"-C", dir}, args...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := Result{
		OK:     err == nil,
		// Only trailing newlines go: porcelain status lines start with a space.
		Stdout: strings.TrimRight(stdout.String(), "\r\n"),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil && res.Stderr == "" {
		res.Stderr = err.Error()
	}

	if e.Log != nil {
		e.Log.Debugf("    $ git %s (ok=%t)", strings.Join(args, " "), res.OK)
		if !res.OK {
			e.Log.Debugf("      %s", res.Stderr)
		}
	}
	return res
}
