package textfix

import (
	"path/filepath"

	"github.com/leighmcculloch/fleet/internal/ui"
)

// Stats summarizes one pass over a project's sources.
type Stats struct {
	Files        int
	Changed      int
	Replacements int
	Failed       []string
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Files += o.Files
	s.Changed += o.Changed
	s.Replacements += o.Replacements
	s.Failed = append(s.Failed, o.Failed...)
}

// NormalizeProject converts every source file of project to UTF-8.
func NormalizeProject(project string, log *ui.Logger) (Stats, error) {
	files, err := SourceFiles(project)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Files: len(files)}
	for _, f := range files {
		changed, err := NormalizeFile(f)
		switch {
		case err != nil:
			log.Warnf("%v", err)
			s.Failed = append(s.Failed, f)
		case changed:
			s.Changed++
			log.Printf("  converted to UTF-8: %s", rel(project, f))
		}
	}
	return s, nil
}

// FixProject applies the API rewrite rules to every source file of project.
func FixProject(project string, log *ui.Logger) (Stats, error) {
	files, err := SourceFiles(project)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Files: len(files)}
	for _, f := range files {
		changes, err := RewriteFile(f)
		if err != nil {
			log.Warnf("%v", err)
			s.Failed = append(s.Failed, f)
			continue
		}
		if len(changes) == 0 {
			continue
		}
		s.Changed++
		log.Printf("  %s: %s", ui.Green("fixed"), rel(project, f))
		for _, c := range changes {
			s.Replacements += c.Count
			log.Debugf("    %s (%d)", c.Rule, c.Count)
		}
	}
	return s, nil
}

func rel(base, path string) string {
	if r, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}
