// Package workflow commits and pushes a project's pending changes to the
// branch chosen by the branch resolver.
package workflow

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/leighmcculloch/fleet/internal/branch"
	"github.com/leighmcculloch/fleet/internal/config"
	"github.com/leighmcculloch/fleet/internal/gitexec"
	"github.com/leighmcculloch/fleet/internal/recovery"
	"github.com/leighmcculloch/fleet/internal/ui"
)

// Outcome is the result of syncing one project.
type Outcome struct {
	Project   string
	OK        bool
	NoChanges bool
	Branch    string
	Committed bool
	Pushed    bool
	Reason    string
}

// Workflow syncs projects. It must not be used on one project concurrently.
type Workflow struct {
	Git      gitexec.Gateway
	Resolver *branch.Resolver
	Recovery *recovery.Machine
	BaseURL  string
	Log      *ui.Logger
}

// New wires a Workflow from the git settings.
func New(git gitexec.Gateway, settings config.Git, log *ui.Logger) *Workflow {
	if log == nil {
		log = ui.Discard()
	}
	return &Workflow{
		Git: git,
		Resolver: &branch.Resolver{
			Git:      git,
			Default:  settings.DefaultBranch,
			Fallback: settings.FallbackBranch,
			Log:      log,
		},
		Recovery: &recovery.Machine{Git: git, Log: log},
		BaseURL:  settings.BaseURL,
		Log:      log,
	}
}

// Sync commits all pending changes of p with message and pushes them. It
// produces at most one commit. A push failure after a successful commit is
// reported as a failure and the commit is kept.
func (w *Workflow) Sync(p config.Project, message string) Outcome {
	out := Outcome{Project: p.Name()}
	fail := func(reason string) Outcome {
		out.Reason = reason
		w.Log.Failf("%s: %s", out.Project, reason)
		return out
	}

	if !p.Exists() {
		return fail("project folder does not exist: " + p.Path)
	}
	dir := p.Path

	if reason := w.ensureRepository(p); reason != "" {
		return fail(reason)
	}

	status := w.Git.Run(dir, "status", "--porcelain")
	if !status.OK {
		w.Log.Warnf("%s: git status failed: %s", out.Project, status.Stderr)
		if !w.Recovery.EnsureCommittable(dir) {
			return fail("repository could not be recovered")
		}
		status = w.Git.Run(dir, "status", "--porcelain")
		if !status.OK {
			return fail("git status failed after recovery: " + status.Stderr)
		}
	}
	if strings.TrimSpace(status.Stdout) == "" {
		out.OK = true
		out.NoChanges = true
		w.Log.Printf("  no changes: %s", out.Project)
		return out
	}

	target := w.Resolver.Resolve(dir)
	out.Branch = target
	w.Log.Printf("  target branch: %s", target)

	if res, rung := w.checkout(dir, target); rung == GaveUp {
		return fail("checkout " + target + " failed: " + res.Stderr)
	} else if rung != FirstTry {
		w.Log.Debugf("  checkout %s succeeded %s", target, rung)
	}

	stage := Ladder{Recovery: w.Recovery, ShouldRecover: indexProblem}
	if res, rung := stage.Climb(dir, func() gitexec.Result { return w.Git.Run(dir, "add", "-A") }); rung == GaveUp {
		return fail("git add failed: " + res.Stderr)
	}

	if res := w.Git.Run(dir, "commit", "-m", message); !res.OK {
		return fail("git commit failed: " + firstNonEmpty(res.Stderr, res.Stdout))
	}
	out.Committed = true
	w.Log.Printf("  committed: %s", out.Project)

	if res := w.Git.Run(dir, "push", "-u", "origin", target); !res.OK {
		return fail("git push failed: " + res.Stderr)
	}
	out.Pushed = true
	out.OK = true
	w.Log.Successf("%s -> %s", out.Project, target)
	return out
}

// checkout switches to target, creating it when neither a local nor an
// origin branch of that name exists.
func (w *Workflow) checkout(dir, target string) (gitexec.Result, Rung) {
	args := []string{"checkout", target}
	if !w.refExists(dir, "refs/heads/"+target) && !w.refExists(dir, "refs/remotes/origin/"+target) {
		w.Log.Printf("  creating branch %s", target)
		args = []string{"checkout", "-b", target}
	}

	ladder := Ladder{
		Recovery: w.Recovery,
		Forced: func() gitexec.Result {
			w.Log.Warnf("forcing checkout of %s", target)
			forced := append([]string{"checkout", "-f"}, args[1:]...)
			return w.Git.Run(dir, forced...)
		},
	}
	return ladder.Climb(dir, func() gitexec.Result { return w.Git.Run(dir, args...) })
}

func (w *Workflow) refExists(dir, ref string) bool {
	return w.Git.Run(dir, "show-ref", "--verify", "--quiet", ref).OK
}

// ensureRepository initializes the repository and its origin remote when
// missing. It returns a failure reason, or "" on success.
func (w *Workflow) ensureRepository(p config.Project) string {
	dir := p.Path
	url := p.RemoteURL(w.BaseURL)

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		w.Log.Printf("  initializing repository: %s", dir)
		if res := w.Git.Run(dir, "init"); !res.OK {
			return "git init failed: " + res.Stderr
		}
	} else if w.Git.Run(dir, "remote", "get-url", "origin").OK {
		return ""
	}

	res := w.Git.Run(dir, "remote", "add", "origin", url)
	if res.OK {
		w.Log.Printf("  remote origin: %s", url)
		return ""
	}
	if !strings.Contains(res.Stderr, "already exists") {
		return "git remote add failed: " + res.Stderr
	}
	existing := w.Git.Run(dir, "remote", "get-url", "origin")
	if existing.OK && strings.TrimSpace(existing.Stdout) == url {
		return ""
	}
	return "remote origin mismatch: have " + strings.TrimSpace(existing.Stdout) + ", want " + url
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
