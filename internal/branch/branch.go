// Package branch picks the branch a project's next commit belongs on.
//
// The chosen branch is the "deepest" non-default branch: the one with the
// most reachable commits, ties broken by the most recent commit time, and
// remaining ties by enumeration order. Enumeration order is the order git
// lists refs for `git branch -a`: local heads first, then remote-tracking
// refs, each sorted by refname.
package branch

import (
	"strconv"
	"strings"

	"github.com/leighmcculloch/fleet/internal/gitexec"
	"github.com/leighmcculloch/fleet/internal/ui"
)

// Candidate is a deduplicated branch name and the first ref it was seen as.
type Candidate struct {
	Name string
	Ref  string
}

// Info is a candidate scored for selection.
type Info struct {
	Candidate
	Commits    int
	LastCommit int64
}

// Resolver resolves target branches. It never mutates the repository.
type Resolver struct {
	Git      gitexec.Gateway
	Default  string
	Fallback string
	Log      *ui.Logger
}

// ParseRefs turns `git branch -a --format=%(refname)` output into
// candidates. Remote-tracking prefixes are stripped so origin/foo and foo
// collapse into one candidate; symbolic remote HEADs are skipped.
func ParseRefs(out string) []Candidate {
	var candidates []Candidate
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		ref := strings.TrimSpace(line)
		var name string
		switch {
		case strings.HasPrefix(ref, "refs/heads/"):
			name = strings.TrimPrefix(ref, "refs/heads/")
		case strings.HasPrefix(ref, "refs/remotes/"):
			rest := strings.TrimPrefix(ref, "refs/remotes/")
			i := strings.Index(rest, "/")
			if i < 0 {
				continue
			}
			name = rest[i+1:]
			if name == "HEAD" {
				continue
			}
		default:
			continue
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		candidates = append(candidates, Candidate{Name: name, Ref: ref})
	}
	return candidates
}

// Deepest selects the candidate with the most commits, then the latest
// commit time. The earliest candidate wins a full tie. It returns false only
// when infos is empty.
func Deepest(infos []Info) (Info, bool) {
	if len(infos) == 0 {
		return Info{}, false
	}
	best := infos[0]
	for _, info := range infos[1:] {
		if info.Commits > best.Commits ||
			(info.Commits == best.Commits && info.LastCommit > best.LastCommit) {
			best = info
		}
	}
	return best, true
}

// Candidates lists the branch candidates of the repository in dir,
// excluding the default branch.
func (r *Resolver) Candidates(dir string) []Candidate {
	res := r.Git.Run(dir, "branch", "-a", "--format=%(refname)")
	if !res.OK {
		r.logf("  could not list branches: %s", res.Stderr)
		return nil
	}
	var out []Candidate
	for _, c := range ParseRefs(res.Stdout) {
		if c.Name == r.Default {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Score queries commit count and latest commit time of a candidate. A failed
// count scores (0, 0); a failed timestamp scores only the time as 0.
func (r *Resolver) Score(dir string, c Candidate) Info {
	info := Info{Candidate: c}
	count := r.Git.Run(dir, "rev-list", "--count", c.Ref)
	if !count.OK {
		return info
	}
	info.Commits, _ = strconv.Atoi(strings.TrimSpace(count.Stdout))

	last := r.Git.Run(dir, "log", "-1", "--format=%ct", c.Ref)
	if last.OK {
		info.LastCommit, _ = strconv.ParseInt(strings.TrimSpace(last.Stdout), 10, 64)
	}
	return info
}

// Resolve returns the target branch for the repository in dir. When no
// non-default branch exists it returns the fallback branch, which the caller
// creates if needed.
func (r *Resolver) Resolve(dir string) string {
	candidates := r.Candidates(dir)
	infos := make([]Info, 0, len(candidates))
	for _, c := range candidates {
		info := r.Score(dir, c)
		r.logf("  %s: %d commits, last commit %d", info.Name, info.Commits, info.LastCommit)
		infos = append(infos, info)
	}

	if best, ok := Deepest(infos); ok {
		r.logf("  deepest branch: %s", best.Name)
		return best.Name
	}
	r.logf("  no candidate branch, using %s", r.Fallback)
	return r.Fallback
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Debugf(format, args...)
	}
}
