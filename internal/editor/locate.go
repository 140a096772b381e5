package editor

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrEditorNotFound is returned when neither the configured path nor any
// install root holds an editor binary.
var ErrEditorNotFound = errors.New("editor not found")

// binaries are checked below <root>/<version>/ in order.
var binaries = []string{
	filepath.Join("Editor", "Unity.exe"),
	filepath.Join("Editor", "Unity"),
	filepath.Join("Unity.app", "Contents", "MacOS", "Unity"),
}

// Locate returns the editor binary. The configured path wins when it exists;
// otherwise each search root is scanned once, newest version first.
func (iv *Invoker) Locate() (string, error) {
	if iv.Path != "" && isFile(iv.Path) {
		return iv.Path, nil
	}
	log := iv.logger()
	if iv.Path != "" {
		log.Warnf("editor not found at %s, searching install roots", iv.Path)
	}
	for _, root := range iv.SearchRoots {
		if path, ok := newestIn(root); ok {
			log.Printf("  editor found: %s", path)
			return path, nil
		}
	}
	return "", ErrEditorNotFound
}

func newestIn(root string) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versionLess(versions[j], versions[i]) })
	for _, v := range versions {
		for _, b := range binaries {
			path := filepath.Join(root, v, b)
			if isFile(path) {
				return path, true
			}
		}
	}
	return "", false
}

// versionLess orders editor version names such as 2022.3.9f1 and 6000.0.23f1,
// comparing digit runs numerically.
func versionLess(a, b string) bool {
	for a != "" && b != "" {
		ca, ra := chunk(a)
		cb, rb := chunk(b)
		if ca != cb {
			na, errA := strconv.Atoi(ca)
			nb, errB := strconv.Atoi(cb)
			if errA == nil && errB == nil {
				return na < nb
			}
			return ca < cb
		}
		a, b = ra, rb
	}
	return len(a) < len(b)
}

// chunk splits off the leading run of digits or non-digits.
func chunk(s string) (string, string) {
	digit := unicode.IsDigit(rune(s[0]))
	i := strings.IndexFunc(s, func(r rune) bool { return unicode.IsDigit(r) != digit })
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
