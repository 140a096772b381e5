package textfix

import (
	"os"
	"regexp"
)

// Rule rewrites one deprecated API pattern.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Rules are applied in order. Qualifiers such as GameObject. are kept since
// the replacements are static members of the same base type.
var Rules = []Rule{
	{
		Name:        "FindObjectOfType",
		Pattern:     regexp.MustCompile(`\bFindObjectOfType<([^>]+)>\(\)`),
		Replacement: `FindFirstObjectByType<${1}>()`,
	},
	{
		Name:        "FindObjectsOfType",
		Pattern:     regexp.MustCompile(`\bFindObjectsOfType<([^>]+)>\(\)`),
		Replacement: `FindObjectsByType<${1}>(FindObjectsSortMode.None)`,
	},
	{
		Name:        "WebGL.debugSymbols = false",
		Pattern:     regexp.MustCompile(`PlayerSettings\.WebGL\.debugSymbols\s*=\s*false`),
		Replacement: `PlayerSettings.WebGL.debugSymbolMode = WebGLDebugSymbolMode.Off`,
	},
	{
		Name:        "WebGL.debugSymbols = true",
		Pattern:     regexp.MustCompile(`PlayerSettings\.WebGL\.debugSymbols\s*=\s*true`),
		Replacement: `PlayerSettings.WebGL.debugSymbolMode = WebGLDebugSymbolMode.External`,
	},
	{
		Name:        "WebGL.wasmStreaming",
		Pattern:     regexp.MustCompile(`PlayerSettings\.WebGL\.wasmStreaming\s*=\s*[^;]+;`),
		Replacement: `// wasmStreaming was removed in Unity 6, decompressionFallback decides it`,
	},
	{
		Name:        "SplashScreen.logoAnimationMode",
		Pattern:     regexp.MustCompile(`PlayerSettings\.SplashScreen\.logoAnimationMode[^;]+;`),
		Replacement: `// logoAnimationMode was removed in Unity 6`,
	},
	{
		Name:        "GetIconsForTargetGroup",
		Pattern:     regexp.MustCompile(`PlayerSettings\.GetIconsForTargetGroup\(BuildTargetGroup\.([^)]+)\)`),
		Replacement: `PlayerSettings.GetIcons(NamedBuildTarget.${1}, IconKind.Application)`,
	},
}

// Change counts the replacements made by one rule.
type Change struct {
	Rule  string
	Count int
}

// Rewrite applies every rule to src.
func Rewrite(src string) (string, []Change) {
	var changes []Change
	for _, r := range Rules {
		n := len(r.Pattern.FindAllStringIndex(src, -1))
		if n == 0 {
			continue
		}
		src = r.Pattern.ReplaceAllString(src, r.Replacement)
		changes = append(changes, Change{Rule: r.Name, Count: n})
	}
	return src, changes
}

// RewriteFile applies Rewrite to path and writes the file back only when it
// changed.
func RewriteFile(path string) ([]Change, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, changes := Rewrite(string(raw))
	if len(changes) == 0 {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return nil, err
	}
	return changes, nil
}
