// Package manifest adds package dependencies to a project's
// Packages/manifest.json.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/leighmcculloch/fleet/internal/config"
)

// ErrNoManifest is returned for projects without a package manifest.
var ErrNoManifest = errors.New("no package manifest")

var indent = &pretty.Options{Width: 80, Prefix: "", Indent: "    "}

// Path returns the manifest location of project.
func Path(project string) string {
	return filepath.Join(project, "Packages", "manifest.json")
}

// Merge sets every package in the manifest's dependencies. Existing keys
// keep their position and new keys are appended. The file is rewritten only
// when an entry was added or changed; Merge reports whether it was.
func Merge(project string, packages []config.Package) (bool, error) {
	path := Path(project)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%s: %w", path, ErrNoManifest)
	} else if err != nil {
		return false, err
	}

	merged, changed, err := merge(data, packages)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(path, merged, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func merge(data []byte, packages []config.Package) ([]byte, bool, error) {
	if !gjson.ValidBytes(data) {
		return nil, false, errors.New("invalid JSON")
	}
	if deps := gjson.GetBytes(data, "dependencies"); deps.Exists() && !deps.IsObject() {
		return nil, false, errors.New("dependencies is not an object")
	}

	changed := false
	for _, p := range packages {
		key := "dependencies." + escape(p.Name)
		if cur := gjson.GetBytes(data, key); cur.Exists() && cur.Type == gjson.String && cur.Str == p.URL {
			continue
		}
		var err error
		data, err = sjson.SetBytes(data, key, p.URL)
		if err != nil {
			return nil, false, fmt.Errorf("setting %s: %w", p.Name, err)
		}
		changed = true
	}
	if !changed {
		return nil, false, nil
	}
	return pretty.PrettyOptions(data, indent), true, nil
}

// escape quotes the path syntax characters that appear in package names,
// such as the dots of com.company.package.
func escape(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
