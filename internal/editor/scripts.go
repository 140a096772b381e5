package editor

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Script is an editor script generated into a project.
type Script struct {
	Path string
	// Method is the fully qualified entry point for -executeMethod.
	Method string
}

type scriptData struct {
	Class      string
	Method     string
	Target     string
	OutputPath string
}

// WriteBatchScript generates the batch processing script into project.
func WriteBatchScript(project string) (Script, error) {
	data := scriptData{Class: "AutoBatchProcessor", Method: "ProcessBatch"}
	path := filepath.Join(project, "Assets", "Editor", "BatchScripts", data.Class+".cs")
	return writeScript("batch.cs.tmpl", path, data)
}

// WriteBuildScript generates the build script into project. Builds land in
// <project>/<outputDir>/<target>.
func (iv *Invoker) WriteBuildScript(project, outputDir string) (Script, error) {
	target := iv.BuildTarget
	if target == "" {
		target = "WebGL"
	}
	data := scriptData{
		Class:      "AutoWebGLBuildScript",
		Method:     "BuildWebGLWithPlayerSettings",
		Target:     target,
		OutputPath: filepath.ToSlash(filepath.Join(project, outputDir, target)),
	}
	path := filepath.Join(project, "Assets", "Editor", data.Class+".cs")
	return writeScript("build.cs.tmpl", path, data)
}

func writeScript(name, path string, data scriptData) (Script, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Script{}, fmt.Errorf("rendering %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Script{}, fmt.Errorf("creating script directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Script{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return Script{Path: path, Method: data.Class + "." + data.Method}, nil
}
