// Package editor invokes the external editor in batch or build mode.
package editor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/leighmcculloch/fleet/internal/ui"
)

// Mode selects how the editor is driven.
type Mode int

const (
	ModeBatch Mode = iota
	ModeBuild
)

func (m Mode) String() string {
	if m == ModeBuild {
		return "build"
	}
	return "batch"
}

// Command is a structured process invocation. It is never passed through a
// shell.
type Command struct {
	Program string
	Args    []string
	Dir     string
}

func (c Command) String() string {
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of one editor invocation.
type Result struct {
	OK       bool
	TimedOut bool
	// Warning is set when a non-zero exit was accepted as success.
	Warning  bool
	ExitCode int
	Output   string
	Reason   string
	LogFile  string
}

// Invoker runs the editor for a project.
type Invoker struct {
	// Path is the configured editor binary.
	Path string
	// SearchRoots are install roots scanned when Path does not exist.
	SearchRoots []string
	BuildTarget string
	// LogDir receives one captured output file per invocation. Empty
	// disables the files.
	LogDir string
	Log    *ui.Logger
}

// Command builds the editor invocation for project.
func (iv *Invoker) Command(program, project string, mode Mode, method string) Command {
	args := []string{"-batchmode", "-quit", "-projectPath", project, "-logFile", "-"}
	if method != "" {
		args = append(args, "-executeMethod", method)
	}
	if mode == ModeBuild && iv.BuildTarget != "" {
		args = append(args, "-buildTarget", iv.BuildTarget)
	}
	return Command{Program: program, Args: args, Dir: project}
}

// Invoke runs the editor against project and waits at most timeout. A zero
// timeout waits indefinitely. Invoke never returns an error; failures are
// described by the result.
func (iv *Invoker) Invoke(ctx context.Context, project string, mode Mode, method string, timeout time.Duration) Result {
	log := iv.logger()
	program, err := iv.Locate()
	if err != nil {
		return Result{Reason: err.Error()}
	}
	cmd := iv.Command(program, project, mode, method)
	log.Debugf("  $ %s", cmd)

	res := run(ctx, cmd, timeout)
	if res.TimedOut {
		res.Reason = fmt.Sprintf("timed out after %s", timeout)
	}
	if res.Warning {
		log.Warnf("%s: editor exited with code %d, no errors in output", filepath.Base(project), res.ExitCode)
	}

	if iv.LogDir != "" {
		path := filepath.Join(iv.LogDir, logName(mode, project))
		if err := os.WriteFile(path, []byte(res.Output), 0o644); err != nil {
			log.Warnf("writing %s: %v", path, err)
		} else {
			res.LogFile = path
		}
	}
	if log.Verbose() && res.Output != "" {
		fmt.Fprintf(log.Writer(), "%s\n", ui.Dim(strings.TrimRight(res.Output, "\n")))
	}
	return res
}

// logName is unique per project path so projects sharing a folder name
// never write the same log, even when they run in parallel.
func logName(mode Mode, project string) string {
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}
	sum := sha256.Sum256([]byte(project))
	return fmt.Sprintf("fleet-%s-%s-%s.log", mode, filepath.Base(project), hex.EncodeToString(sum[:4]))
}

func run(ctx context.Context, c Command, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second
	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		output += stderr.String()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{TimedOut: true, ExitCode: -1, Output: output}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Result{OK: true, Output: output}
	case errors.As(err, &exitErr):
		res := interpret(exitErr.ExitCode(), stdout.String())
		res.Output = output
		return res
	default:
		return Result{ExitCode: -1, Output: output, Reason: err.Error()}
	}
}

// interpret applies the editor's exit rule: a non-zero exit is still a
// success unless the output mentions an error or exception.
func interpret(exitCode int, stdout string) Result {
	if exitCode == 0 {
		return Result{OK: true}
	}
	lower := strings.ToLower(stdout)
	if strings.Contains(lower, "error") || strings.Contains(lower, "exception") {
		return Result{ExitCode: exitCode, Reason: fmt.Sprintf("exit code %d with errors in output", exitCode)}
	}
	return Result{OK: true, Warning: true, ExitCode: exitCode}
}

func (iv *Invoker) logger() *ui.Logger {
	if iv.Log == nil {
		return ui.Discard()
	}
	return iv.Log
}
