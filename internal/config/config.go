// Package config loads the fleet configuration file.
//
// The configuration is read once at startup into an immutable Config value
// that is passed to every phase explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "fleet.yaml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Package is a dependency injected into each project's package manifest.
type Package struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Git holds version-control settings.
type Git struct {
	BaseURL        string `yaml:"base_url"`
	DefaultBranch  string `yaml:"default_branch"`
	FallbackBranch string `yaml:"fallback_branch"`
	CommitMessage  string `yaml:"commit_message"`
}

// Editor holds settings for the external editor invocations.
type Editor struct {
	Path           string        `yaml:"path"`
	SearchRoots    []string      `yaml:"search_roots"`
	LogDir         string        `yaml:"log_dir"`
	BatchTimeout   time.Duration `yaml:"batch_timeout"`
	BuildTimeout   time.Duration `yaml:"build_timeout"`
	BatchWorkers   int           `yaml:"batch_workers"`
	BuildWorkers   int           `yaml:"build_workers"`
	BatchMethod    string        `yaml:"batch_method"`
	BuildTarget    string        `yaml:"build_target"`
	BuildOutputDir string        `yaml:"build_output_dir"`
}

// file models fleet.yaml.
type file struct {
	Projects   []string  `yaml:"projects"`
	ScanDirs   []string  `yaml:"scan_dirs"`
	Git        Git       `yaml:"git"`
	Editor     Editor    `yaml:"editor"`
	Packages   []Package `yaml:"packages"`
	ReportPath string    `yaml:"report_path"`
}

// Config is the loaded configuration. Its fields are only exposed through
// accessors that return copies.
type Config struct {
	projects   []Project
	git        Git
	editor     Editor
	packages   []Package
	reportPath string
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data, applies defaults, discovers projects
// in the scan directories and validates the result.
func Parse(data []byte) (Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	applyDefaults(&f)
	if err := validate(f); err != nil {
		return Config{}, err
	}

	paths := append([]string(nil), f.Projects...)
	for _, dir := range f.ScanDirs {
		found, err := Discover(dir)
		if err != nil {
			return Config{}, fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, p := range found {
			paths = append(paths, p.Path)
		}
	}

	return Config{
		projects:   dedupe(paths),
		git:        f.Git,
		editor:     f.Editor,
		packages:   append([]Package(nil), f.Packages...),
		reportPath: f.ReportPath,
	}, nil
}

func applyDefaults(f *file) {
	if f.Git.BaseURL == "" {
		f.Git.BaseURL = "https://github.com/mmporong/"
	}
	if f.Git.DefaultBranch == "" {
		f.Git.DefaultBranch = "main"
	}
	if f.Git.FallbackBranch == "" {
		f.Git.FallbackBranch = "dev"
	}
	if f.Git.CommitMessage == "" {
		f.Git.CommitMessage = "Auto commit: Unity project updates"
	}
	if f.Editor.LogDir == "" {
		f.Editor.LogDir = os.TempDir()
	}
	if f.Editor.BatchTimeout == 0 {
		f.Editor.BatchTimeout = 5 * time.Minute
	}
	if f.Editor.BuildTimeout == 0 {
		f.Editor.BuildTimeout = 30 * time.Minute
	}
	if f.Editor.BatchWorkers == 0 {
		f.Editor.BatchWorkers = 3
	}
	if f.Editor.BuildWorkers == 0 {
		f.Editor.BuildWorkers = 2
	}
	if f.Editor.BuildTarget == "" {
		f.Editor.BuildTarget = "WebGL"
	}
	if f.Editor.BuildOutputDir == "" {
		f.Editor.BuildOutputDir = "Builds"
	}
	if f.ReportPath == "" {
		f.ReportPath = "compatibility_report.md"
	}
}

func validate(f file) error {
	if f.Git.DefaultBranch == f.Git.FallbackBranch {
		return fmt.Errorf("%w: fallback branch %q must differ from default branch", ErrInvalid, f.Git.FallbackBranch)
	}
	if f.Editor.BatchWorkers < 1 || f.Editor.BuildWorkers < 1 {
		return fmt.Errorf("%w: worker counts must be at least 1", ErrInvalid)
	}
	if f.Editor.BatchTimeout < 0 || f.Editor.BuildTimeout < 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	for i, p := range f.Packages {
		if p.Name == "" || p.URL == "" {
			return fmt.Errorf("%w: package %d needs both name and url", ErrInvalid, i)
		}
	}
	return nil
}

// dedupe keeps the first occurrence of every cleaned path.
func dedupe(paths []string) []Project {
	seen := make(map[string]bool, len(paths))
	projects := make([]Project, 0, len(paths))
	for _, p := range paths {
		key := filepath.Clean(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		projects = append(projects, Project{Path: p})
	}
	return projects
}

// Projects returns the configured projects in configuration order.
func (c Config) Projects() []Project {
	return append([]Project(nil), c.projects...)
}

// Git returns the version-control settings.
func (c Config) Git() Git { return c.git }

// Editor returns the editor settings.
func (c Config) Editor() Editor {
	e := c.editor
	e.SearchRoots = append([]string(nil), c.editor.SearchRoots...)
	return e
}

// Packages returns the manifest packages in configuration order.
func (c Config) Packages() []Package {
	return append([]Package(nil), c.packages...)
}

// ReportPath is where check-apis writes its report.
func (c Config) ReportPath() string { return c.reportPath }
