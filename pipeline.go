package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/leighmcculloch/fleet/internal/config"
	"github.com/leighmcculloch/fleet/internal/editor"
	"github.com/leighmcculloch/fleet/internal/gitexec"
	"github.com/leighmcculloch/fleet/internal/manifest"
	"github.com/leighmcculloch/fleet/internal/orchestrator"
	"github.com/leighmcculloch/fleet/internal/textfix"
	"github.com/leighmcculloch/fleet/internal/ui"
	"github.com/leighmcculloch/fleet/internal/workflow"
)

// fleet runs the phases of one invocation. Phases run one after another,
// so git and the editor never work on a project at the same time.
type fleet struct {
	cfg     config.Config
	log     *ui.Logger
	git     gitexec.Gateway
	invoker *editor.Invoker
	orch    *orchestrator.Orchestrator
}

func newFleet(cfg config.Config, log *ui.Logger) *fleet {
	e := cfg.Editor()
	return &fleet{
		cfg: cfg,
		log: log,
		git: gitexec.Exec{Log: log},
		invoker: &editor.Invoker{
			Path:        e.Path,
			SearchRoots: e.SearchRoots,
			BuildTarget: e.BuildTarget,
			LogDir:      e.LogDir,
			Log:         log,
		},
		orch: orchestrator.New(log),
	}
}

// commitMessage extends the configured message with what this run changed.
func commitMessage(base string, apiFixes, packages bool) string {
	if apiFixes {
		base += ", Unity 6 API compatibility fixes"
	}
	if packages {
		base += ", and package additions"
	}
	return base
}

func (f *fleet) normalize() {
	f.log.Section("UTF-8 normalization")
	var total textfix.Stats
	for _, p := range f.existing() {
		s, err := textfix.NormalizeProject(p.Path, f.log)
		if err != nil {
			f.log.Warnf("%s: %v", p.Name(), err)
			continue
		}
		f.log.Debugf("%s: %d of %d files converted", p.Name(), s.Changed, s.Files)
		total.Add(s)
	}
	f.log.Printf("%d of %d files converted", total.Changed, total.Files)
}

// fixAPIs reports whether any file was rewritten.
func (f *fleet) fixAPIs() bool {
	f.log.Section("API compatibility fixes")
	var total textfix.Stats
	for _, p := range f.existing() {
		s, err := textfix.FixProject(p.Path, f.log)
		if err != nil {
			f.log.Warnf("%s: %v", p.Name(), err)
			continue
		}
		f.log.Printf("%s: %d of %d files changed, %d replacements", p.Name(), s.Changed, s.Files, s.Replacements)
		total.Add(s)
	}
	f.log.Printf("%d of %d files changed, %d deprecated API uses replaced", total.Changed, total.Files, total.Replacements)
	return total.Changed > 0
}

// mergePackages reports whether any manifest changed.
func (f *fleet) mergePackages() bool {
	packages := f.cfg.Packages()
	if len(packages) == 0 {
		return false
	}
	f.log.Section("package manifests")
	changed := false
	for _, p := range f.existing() {
		ok, err := manifest.Merge(p.Path, packages)
		switch {
		case errors.Is(err, manifest.ErrNoManifest):
			f.log.Warnf("%s: no package manifest", p.Name())
		case err != nil:
			f.log.Errorf("%s: %v", p.Name(), err)
		case ok:
			changed = true
			f.log.Successf("%s: packages added", p.Name())
		default:
			f.log.Printf("%s: packages already present", p.Name())
		}
	}
	return changed
}

// sync commits and pushes every project, strictly one at a time.
func (f *fleet) sync(message string) []workflow.Outcome {
	projects := f.cfg.Projects()
	f.log.Section("commit and push: %d projects", len(projects))
	wf := workflow.New(f.git, f.cfg.Git(), f.log)

	outcomes := make([]workflow.Outcome, 0, len(projects))
	success := 0
	for i, p := range projects {
		f.log.Printf("[%d/%d] %s", i+1, len(projects), p.Name())
		out := wf.Sync(p, message)
		if out.OK {
			success++
		}
		outcomes = append(outcomes, out)
	}

	f.log.Section("commit and push results")
	f.log.Printf("success: %d, failure: %d, total: %d", success, len(outcomes)-success, len(outcomes))
	for _, out := range outcomes {
		if !out.OK {
			f.log.Printf("  %s %s: %s", ui.Red("-"), out.Project, out.Reason)
		}
	}
	return outcomes
}

func (f *fleet) batch(ctx context.Context, parallel bool, method string) orchestrator.Summary {
	e := f.cfg.Editor()
	op := func(ctx context.Context, p config.Project, timeout time.Duration) orchestrator.Outcome {
		if reason := f.precondition(p); reason != "" {
			return orchestrator.Failure(reason)
		}
		if _, err := editor.WriteBatchScript(p.Path); err != nil {
			return orchestrator.Failure(err.Error())
		}
		return outcome(f.invoker.Invoke(ctx, p.Path, editor.ModeBatch, method, timeout), timeout)
	}
	return f.runPhase(ctx, "batch", op, parallel, e.BatchWorkers, e.BatchTimeout)
}

func (f *fleet) build(ctx context.Context, parallel bool) orchestrator.Summary {
	e := f.cfg.Editor()
	op := func(ctx context.Context, p config.Project, timeout time.Duration) orchestrator.Outcome {
		if reason := f.precondition(p); reason != "" {
			return orchestrator.Failure(reason)
		}
		script, err := f.invoker.WriteBuildScript(p.Path, e.BuildOutputDir)
		if err != nil {
			return orchestrator.Failure(err.Error())
		}
		return outcome(f.invoker.Invoke(ctx, p.Path, editor.ModeBuild, script.Method, timeout), timeout)
	}
	return f.runPhase(ctx, "build", op, parallel, e.BuildWorkers, e.BuildTimeout)
}

func (f *fleet) runPhase(ctx context.Context, name string, op orchestrator.Operation, parallel bool, workers int, timeout time.Duration) orchestrator.Summary {
	mode := orchestrator.Sequential()
	if parallel {
		mode = orchestrator.BoundedParallel(workers)
	}
	s := f.orch.Run(ctx, f.cfg.Projects(), name, op, mode, timeout)
	f.orch.PrintSummary(s)
	return s
}

func (f *fleet) precondition(p config.Project) string {
	if !p.Exists() {
		return "project folder does not exist: " + p.Path
	}
	if !p.IsEditorProject() {
		return "not an editor project: " + p.Path
	}
	return ""
}

func outcome(res editor.Result, timeout time.Duration) orchestrator.Outcome {
	switch {
	case res.TimedOut:
		return orchestrator.Timeout(timeout)
	case res.OK:
		return orchestrator.Success()
	default:
		return orchestrator.Failure(res.Reason)
	}
}

// clean removes the build output folder of every project.
func (f *fleet) clean() {
	dir := f.cfg.Editor().BuildOutputDir
	f.log.Section("clean build outputs")
	removed := 0
	for _, p := range f.existing() {
		out := filepath.Join(p.Path, dir)
		if _, err := os.Stat(out); err != nil {
			f.log.Debugf("%s: nothing to clean", p.Name())
			continue
		}
		if err := os.RemoveAll(out); err != nil {
			f.log.Errorf("%s: %v", p.Name(), err)
			continue
		}
		removed++
		f.log.Successf("%s: removed %s", p.Name(), out)
	}
	f.log.Printf("%d build outputs removed", removed)
}

// existing returns the configured projects whose folders exist, warning
// about the others.
func (f *fleet) existing() []config.Project {
	var projects []config.Project
	for _, p := range f.cfg.Projects() {
		if !p.Exists() {
			f.log.Warnf("project folder does not exist: %s", p.Path)
			continue
		}
		projects = append(projects, p)
	}
	return projects
}
