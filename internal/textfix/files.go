// Package textfix maintains the C# sources of a project: it normalizes file
// encodings to UTF-8, rewrites deprecated engine API call sites and reports
// the ones it cannot rewrite.
package textfix

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoAssets is returned for projects without an Assets folder.
var ErrNoAssets = errors.New("no Assets folder")

// skipped directory names below Assets. Dot directories are skipped too.
var skipped = map[string]bool{"Library": true, "Temp": true, "Logs": true}

// SourceFiles returns the .cs files below <project>/Assets in lexical order.
func SourceFiles(project string) ([]string, error) {
	assets := filepath.Join(project, "Assets")
	var files []string
	err := filepath.WalkDir(assets, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == assets && errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s: %w", project, ErrNoAssets)
			}
			return err
		}
		if d.IsDir() {
			if path != assets && (strings.HasPrefix(d.Name(), ".") || skipped[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".cs") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
