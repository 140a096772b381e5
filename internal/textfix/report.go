package textfix

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/leighmcculloch/fleet/internal/config"
)

// checks detect API uses that need a manual look. The first entries overlap
// with Rules so a report taken before fixing shows what a fix would touch.
var checks = []*regexp.Regexp{
	regexp.MustCompile(`FindObjectOfType<[^>]+>\(\)`),
	regexp.MustCompile(`FindObjectsOfType<[^>]+>\(\)`),
	regexp.MustCompile(`PlayerSettings\.WebGL\.debugSymbols`),
	regexp.MustCompile(`PlayerSettings\.WebGL\.wasmStreaming`),
	regexp.MustCompile(`PlayerSettings\.SplashScreen\.logoAnimationMode`),
	regexp.MustCompile(`PlayerSettings\.GetIconsForTargetGroup\(`),
	regexp.MustCompile(`Camera\.main\b`),
	regexp.MustCompile(`\.SetActive\(true\).*\.SetActive\(false\)`),
}

// Issue is one check matching in one file.
type Issue struct {
	File    string
	Pattern string
	Count   int
}

// ProjectReport lists the issues of one project.
type ProjectReport struct {
	Name       string
	NoAssets   bool
	Issues     []Issue
	Unreadable []string
}

// Scan checks the sources of every existing project. Missing projects are
// left out of the result.
func Scan(projects []config.Project) []ProjectReport {
	var reports []ProjectReport
	for _, p := range projects {
		if !p.Exists() {
			continue
		}
		r := ProjectReport{Name: p.Name()}
		files, err := SourceFiles(p.Path)
		if errors.Is(err, ErrNoAssets) {
			r.NoAssets = true
		}
		for _, f := range files {
			rel, _ := filepath.Rel(p.Path, f)
			raw, err := os.ReadFile(f)
			if err != nil {
				r.Unreadable = append(r.Unreadable, rel)
				continue
			}
			for _, c := range checks {
				if n := len(c.FindAllIndex(raw, -1)); n > 0 {
					r.Issues = append(r.Issues, Issue{File: filepath.ToSlash(rel), Pattern: c.String(), Count: n})
				}
			}
		}
		reports = append(reports, r)
	}
	return reports
}

// WriteReport renders reports as Markdown.
func WriteReport(w io.Writer, reports []ProjectReport, now time.Time) error {
	ew := &errWriter{w: w}
	ew.printf("# Unity 6 compatibility report\n")
	ew.printf("Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))
	for _, r := range reports {
		ew.printf("## Project: %s\n", r.Name)
		switch {
		case r.NoAssets:
			ew.printf("❌ no Assets folder\n")
		case len(r.Issues) == 0:
			ew.printf("✅ no compatibility issues\n")
		default:
			ew.printf("⚠️ compatibility issues found:\n")
			for _, i := range r.Issues {
				ew.printf("  - %s: `%s` (%d)\n", i.File, i.Pattern, i.Count)
			}
		}
		for _, f := range r.Unreadable {
			ew.printf("  - %s: unreadable\n", f)
		}
		ew.printf("\n")
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
