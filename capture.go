package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/leighmcculloch/fleet/internal/branch"
	"github.com/leighmcculloch/fleet/internal/config"
	"github.com/leighmcculloch/fleet/internal/recovery"
)

// capture inspects every project without changing it.
func (f *fleet) capture() *Status {
	g := f.cfg.Git()
	resolver := &branch.Resolver{Git: f.git, Default: g.DefaultBranch, Fallback: g.FallbackBranch, Log: f.log}
	inspector := &recovery.Machine{Git: f.git, Log: f.log}

	status := &Status{Projects: make([]ProjectStatus, 0, len(f.cfg.Projects()))}
	for _, p := range f.cfg.Projects() {
		f.log.Debugf("inspecting %s", p.Path)
		status.Projects = append(status.Projects, f.captureProject(p, g.BaseURL, resolver, inspector))
	}
	f.log.Debugf("captured %d projects", len(status.Projects))
	return status
}

func (f *fleet) captureProject(p config.Project, baseURL string, resolver *branch.Resolver, inspector *recovery.Machine) ProjectStatus {
	s := ProjectStatus{
		Name:              p.Name(),
		Path:              p.Path,
		Exists:            p.Exists(),
		ExpectedRemoteURL: p.RemoteURL(baseURL),
	}
	if !s.Exists {
		f.log.Warnf("%s does not exist", p.Path)
		return s
	}
	if !isGitRepo(p.Path) {
		f.log.Debugf("  not a repository")
		return s
	}
	s.IsRepository = true

	dir := p.Path
	if res := f.git.Run(dir, "rev-parse", "--abbrev-ref", "HEAD"); res.OK {
		s.Branch = strings.TrimSpace(res.Stdout)
	}
	if res := f.git.Run(dir, "rev-parse", "HEAD"); res.OK {
		s.Commit = strings.TrimSpace(res.Stdout)
	}
	if res := f.git.Run(dir, "remote", "get-url", "origin"); res.OK {
		s.RemoteURL = strings.TrimSpace(res.Stdout)
	}

	state := inspector.Inspect(dir)
	s.State = state.String()
	if state != recovery.Clean {
		f.log.Warnf("%s has uncommitted changes", s.Name)
	}
	s.TargetBranch = resolver.Resolve(dir)

	f.log.Debugf("  branch: %s, commit: %s, target: %s", s.Branch, short(s.Commit), s.TargetBranch)
	return s
}

func isGitRepo(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

func short(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
