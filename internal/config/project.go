package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Project is one managed project folder.
type Project struct {
	Path string
}

// Name returns the last path segment. Both slash styles are accepted so a
// configuration written on Windows still names projects correctly.
func (p Project) Name() string {
	trimmed := strings.TrimRight(p.Path, `/\`)
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// RemoteURL returns the repository URL inferred from the project name.
func (p Project) RemoteURL(baseURL string) string {
	return baseURL + p.Name()
}

// Exists reports whether the project directory exists.
func (p Project) Exists() bool {
	info, err := os.Stat(p.Path)
	return err == nil && info.IsDir()
}

// IsEditorProject reports whether the folder looks like an editor project.
func (p Project) IsEditorProject() bool {
	_, err := os.Stat(filepath.Join(p.Path, "ProjectSettings", "ProjectSettings.asset"))
	return err == nil
}

// Discover returns the immediate subdirectories of baseDir that contain
// both a ProjectSettings and an Assets folder, sorted by path.
func Discover(baseDir string) ([]Project, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, err
	}

	var projects []Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		if isDir(filepath.Join(dir, "ProjectSettings")) && isDir(filepath.Join(dir, "Assets")) {
			projects = append(projects, Project{Path: dir})
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Path < projects[j].Path })
	return projects, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
