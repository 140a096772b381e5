// Package recovery brings a repository back to a state where staging and
// committing can proceed.
//
// A repository is classified from `git status --porcelain` and repaired:
//
//	Clean       nothing to do
//	Conflicted  merge --abort, rebase --abort, then as Dirty
//	Dirty       clean -fd, reset
//	            reset failed: reset --hard HEAD, clean -fd
//	            hard reset failed: Unrecoverable
//
// Unknown (status itself failed) is repaired like Dirty. A final status
// check decides the outcome. Repairs are destructive; untracked files are
// listed before removal.
package recovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/leighmcculloch/fleet/internal/gitexec"
	"github.com/leighmcculloch/fleet/internal/ui"
)

// State classifies a repository.
type State int

const (
	Unknown State = iota
	Clean
	Dirty
	Conflicted
	Unrecoverable
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Conflicted:
		return "conflicted"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// unmerged porcelain codes.
var conflictCodes = []string{"UU", "AA", "DD", "AU", "UA", "DU", "UD"}

// Classify derives a state from `git status --porcelain` output.
func Classify(porcelain string) State {
	if strings.TrimSpace(porcelain) == "" {
		return Clean
	}
	for _, line := range strings.Split(porcelain, "\n") {
		for _, code := range conflictCodes {
			if strings.HasPrefix(line, code) {
				return Conflicted
			}
		}
	}
	return Dirty
}

// Step records one repair command.
type Step struct {
	Command string
	OK      bool
	Detail  string
}

// Report describes a recovery run.
type Report struct {
	Initial State
	Final   State
	Steps   []Step
	OK      bool
}

// Ran reports whether a command was executed during recovery.
func (r Report) Ran(command string) bool {
	for _, s := range r.Steps {
		if s.Command == command {
			return true
		}
	}
	return false
}

// Machine runs recovery against repositories through a Gateway.
type Machine struct {
	Git gitexec.Gateway
	Log *ui.Logger
}

// EnsureCommittable repairs the repository in dir if needed and reports
// whether it can be committed to.
func (m *Machine) EnsureCommittable(dir string) bool {
	return m.Recover(dir).OK
}

// Inspect classifies the repository in dir without changing it.
func (m *Machine) Inspect(dir string) State {
	res := m.Git.Run(dir, "status", "--porcelain")
	if !res.OK {
		return Unknown
	}
	return Classify(res.Stdout)
}

// Recover runs the state machine. It never panics and never returns an
// error; failures are recorded in the report.
func (m *Machine) Recover(dir string) Report {
	rep := Report{Initial: m.Inspect(dir)}
	m.log().Debugf("  repository state: %s", rep.Initial)

	if rep.Initial == Clean {
		rep.Final = Clean
		rep.OK = true
		return rep
	}

	m.removeStaleLock(dir, &rep)

	if rep.Initial == Conflicted {
		m.log().Warnf("merge conflicts detected, aborting merge and rebase")
		// A no-op abort fails; that is expected here.
		m.step(dir, &rep, "merge", "--abort")
		m.step(dir, &rep, "rebase", "--abort")
	}

	m.cleanUntracked(dir, &rep)

	if !m.step(dir, &rep, "reset") {
		m.log().Warnf("index reset failed, forcing reset to HEAD")
		if !m.step(dir, &rep, "reset", "--hard", "HEAD") {
			m.log().Errorf("forced reset failed, repository is unrecoverable")
			rep.Final = Unrecoverable
			return rep
		}
		// A hard reset can bring back files that were ignored but tracked.
		m.cleanUntracked(dir, &rep)
	}

	status := m.Git.Run(dir, "status", "--porcelain")
	rep.Steps = append(rep.Steps, Step{Command: "status --porcelain", OK: status.OK, Detail: status.Stderr})
	if !status.OK {
		rep.Final = Unrecoverable
		return rep
	}
	rep.Final = Classify(status.Stdout)
	rep.OK = rep.Final != Conflicted
	if !rep.OK {
		rep.Final = Unrecoverable
	}
	m.log().Debugf("  repository state after recovery: %s", rep.Final)
	return rep
}

func (m *Machine) cleanUntracked(dir string, rep *Report) {
	if preview := m.Git.Run(dir, "clean", "-n", "-d"); preview.OK && strings.TrimSpace(preview.Stdout) != "" {
		lines := strings.Split(preview.Stdout, "\n")
		m.log().Printf("  removing untracked files in %s:", dir)
		for i, line := range lines {
			if i == 10 {
				m.log().Printf("    ... and %d more", len(lines)-10)
				break
			}
			m.log().Printf("    %s", strings.TrimSpace(line))
		}
	}
	m.step(dir, rep, "clean", "-fd")
}

func (m *Machine) removeStaleLock(dir string, rep *Report) {
	lock := filepath.Join(dir, ".git", "index.lock")
	if _, err := os.Stat(lock); err != nil {
		return
	}
	m.log().Warnf("removing stale index lock %s", lock)
	err := os.Remove(lock)
	s := Step{Command: "remove index.lock", OK: err == nil}
	if err != nil {
		s.Detail = err.Error()
	}
	rep.Steps = append(rep.Steps, s)
}

func (m *Machine) step(dir string, rep *Report, args ...string) bool {
	res := m.Git.Run(dir, args...)
	cmd := strings.Join(args, " ")
	rep.Steps = append(rep.Steps, Step{Command: cmd, OK: res.OK, Detail: res.Stderr})
	if !res.OK {
		m.log().Debugf("  git %s failed: %s", cmd, res.Stderr)
	}
	return res.OK
}

func (m *Machine) log() *ui.Logger {
	if m.Log == nil {
		return ui.Discard()
	}
	return m.Log
}
