package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"

	"4d63.com/testcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, data, 0o644))
}

func setupGit(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	os.Setenv("HOME", dir)
	testcli.Exec(t, "git config --global user.email 'tests@example.com'")
	testcli.Exec(t, "git config --global user.name 'Tests'")
	testcli.Exec(t, "git config --global init.defaultBranch main")
}

func gitExec(t *testing.T, command string) string {
	_, stdout, _ := testcli.Exec(t, command)
	return strings.TrimSpace(stdout)
}

// setupProject creates a committed editor project in the working directory.
func setupProject(t *testing.T, name string) {
	testcli.Mkdir(t, name)
	testcli.Mkdir(t, name+"/Assets")
	testcli.Mkdir(t, name+"/ProjectSettings")
	testcli.Mkdir(t, name+"/Packages")
	writeFile(t, name+"/ProjectSettings/ProjectSettings.asset", []byte("PlayerSettings:\n"))
	writeFile(t, name+"/Packages/manifest.json", []byte("{\n    \"dependencies\": {\n        \"com.unity.ugui\": \"2.0.0\"\n    }\n}\n"))
	testcli.Exec(t, "git -C "+name+" init")
	testcli.Exec(t, "git -C "+name+" add .")
	testcli.Exec(t, "git -C "+name+" commit -m 'Initial commit'")
}

func fakeEditor(t *testing.T, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake editor is a shell script")
	}
	path := testcli.MkdirTemp(t) + "/Unity"
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestHelp(t *testing.T) {
	args := []string{"fleet"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "", stderr)
	assert.Contains(t, stdout, "A tool to normalize, fix, commit and build a fleet of Unity projects.")
	for _, cmd := range []string{"run", "batch", "build", "clean", "fix-apis", "check-apis", "status"} {
		assert.Contains(t, stdout, "  "+cmd+" ")
	}
}

func TestMissingConfig(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)

	args := []string{"fleet", "status"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "", stdout)
	assert.Contains(t, stderr, "reading fleet.yaml")
}

func TestInvalidConfig(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	writeFile(t, "custom.yaml", []byte("git:\n  default_branch: dev\n"))

	args := []string{"fleet", "--config", "custom.yaml", "status"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestRunConflictingFlags(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	writeFile(t, "fleet.yaml", []byte("projects: []\n"))

	args := []string{"fleet", "run", "--skip-git", "--git-only"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "cannot be combined")
}

func TestStatus(t *testing.T) {
	setupGit(t)

	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	setupProject(t, "alpha")
	testcli.Exec(t, "git -C alpha branch dev")
	testcli.Exec(t, "git -C alpha remote add origin https://example.com/alpha")
	testcli.Mkdir(t, "gamma")
	writeFile(t, "fleet.yaml", []byte(`projects:
  - alpha
  - beta
  - gamma
git:
  base_url: https://example.com/
`))

	commit := gitExec(t, "git -C alpha rev-parse HEAD")

	args := []string{"fleet", "status"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "beta does not exist")
	assert.NotContains(t, stderr, "uncommitted changes")
	assert.Equal(t, fmt.Sprintf(`{
  "projects": [
    {
      "name": "alpha",
      "path": "alpha",
      "exists": true,
      "is_repository": true,
      "branch": "main",
      "commit": "%s",
      "state": "clean",
      "target_branch": "dev",
      "remote_url": "https://example.com/alpha",
      "expected_remote_url": "https://example.com/alpha"
    },
    {
      "name": "beta",
      "path": "beta",
      "exists": false,
      "is_repository": false,
      "expected_remote_url": "https://example.com/beta"
    },
    {
      "name": "gamma",
      "path": "gamma",
      "exists": true,
      "is_repository": false,
      "expected_remote_url": "https://example.com/gamma"
    }
  ]
}
`, commit), stdout)
}

func TestStatusUncommittedChangesWarning(t *testing.T) {
	setupGit(t)

	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	setupProject(t, "alpha")
	writeFile(t, "alpha/Assets/New.cs", []byte("class New {}"))
	writeFile(t, "fleet.yaml", []byte("projects: [alpha]\n"))

	args := []string{"fleet", "status"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "alpha has uncommitted changes")
	assert.Contains(t, stdout, `"state": "dirty"`)
}

func TestRunCommitsAndPushes(t *testing.T) {
	setupGit(t)

	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	testcli.Mkdir(t, "remotes")
	testcli.Exec(t, "git init --bare remotes/alpha")
	setupProject(t, "alpha")
	writeFile(t, "alpha/Assets/Player.cs", []byte("var p = FindObjectOfType<Player>();\n"))
	writeFile(t, "fleet.yaml", []byte(fmt.Sprintf(`projects:
  - alpha
git:
  base_url: %s/remotes/
packages:
  - name: com.dannect.toolkit
    url: https://github.com/mmporong/toolkit.git
`, dir)))

	args := []string{"fleet", "run"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "success: 1, failure: 0, total: 1")

	assert.Equal(t, "dev", gitExec(t, "git -C alpha rev-parse --abbrev-ref HEAD"))
	assert.Equal(t, dir+"/remotes/alpha", gitExec(t, "git -C alpha remote get-url origin"))
	assert.Equal(t,
		"Auto commit: Unity project updates, Unity 6 API compatibility fixes, and package additions",
		gitExec(t, "git -C remotes/alpha log -1 --format=%s dev"))
	assert.Equal(t, "", gitExec(t, "git -C alpha status --porcelain"))

	player, err := os.ReadFile("alpha/Assets/Player.cs")
	require.NoError(t, err)
	assert.Equal(t, "var p = FindFirstObjectByType<Player>();\n", string(player))
	manifest, err := os.ReadFile("alpha/Packages/manifest.json")
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `"com.dannect.toolkit": "https://github.com/mmporong/toolkit.git"`)

	// A second run has nothing left to commit.
	exitCode, _, stderr = testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "no changes: alpha")
	assert.Equal(t, "2", gitExec(t, "git -C remotes/alpha rev-list --count dev"))
}

func TestRunGitOnlyReportsFailuresWithoutFailingProcess(t *testing.T) {
	setupGit(t)

	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	setupProject(t, "alpha")
	testcli.Exec(t, "git -C alpha remote add origin https://example.com/elsewhere")
	writeFile(t, "fleet.yaml", []byte(`projects: [alpha, missing]
git:
  base_url: https://example.com/
`))

	args := []string{"fleet", "run", "--git-only"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "no changes: alpha")
	assert.Contains(t, stderr, "project folder does not exist: missing")
	assert.Contains(t, stderr, "success: 1, failure: 1, total: 2")
}

func TestFixAPIs(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	testcli.Mkdir(t, "alpha")
	testcli.Mkdir(t, "alpha/Assets")
	writeFile(t, "alpha/Assets/Enemy.cs", []byte("var all = FindObjectsOfType<Enemy>();\n"))
	writeFile(t, "fleet.yaml", []byte("projects: [alpha]\n"))

	args := []string{"fleet", "fix-apis"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "1 of 1 files changed, 1 deprecated API uses replaced")

	content, err := os.ReadFile("alpha/Assets/Enemy.cs")
	require.NoError(t, err)
	assert.Equal(t, "var all = FindObjectsByType<Enemy>(FindObjectsSortMode.None);\n", string(content))
}

func TestCheckAPIs(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	testcli.Mkdir(t, "alpha")
	testcli.Mkdir(t, "alpha/Assets")
	writeFile(t, "alpha/Assets/Cam.cs", []byte("var c = Camera.main;\n"))
	writeFile(t, "fleet.yaml", []byte("projects: [alpha]\n"))

	args := []string{"fleet", "check-apis", "--out", "report.md"}
	exitCode, stdout, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "", stdout)
	assert.Contains(t, stderr, "report written:")

	report, err := os.ReadFile("report.md")
	require.NoError(t, err)
	assert.Contains(t, string(report), "## Project: alpha\n")
	assert.Contains(t, string(report), "  - Assets/Cam.cs: `Camera\\.main\\b` (1)\n")
}

func TestBatchParallel(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	setupGit(t)
	setupProject(t, "alpha")
	setupProject(t, "beta")
	testcli.Mkdir(t, "plain")
	writeFile(t, "fleet.yaml", []byte(fmt.Sprintf(`projects: [alpha, beta, plain, missing]
editor:
  path: %s
  log_dir: %s
  batch_workers: 2
`, fakeEditor(t, "echo \"batch $*\""), testcli.MkdirTemp(t))))

	args := []string{"fleet", "batch", "--parallel", "--method", "AutoBatchProcessor.ProcessBatch"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "max 2 parallel")
	assert.Contains(t, stderr, "not an editor project: plain")
	assert.Contains(t, stderr, "project folder does not exist: missing")
	assert.Contains(t, stderr, "success: 2, failure: 2, total: 4")

	_, err := os.Stat("alpha/Assets/Editor/BatchScripts/AutoBatchProcessor.cs")
	assert.NoError(t, err)
}

func TestBuildTimeout(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	setupGit(t)
	setupProject(t, "alpha")
	writeFile(t, "fleet.yaml", []byte(fmt.Sprintf(`projects: [alpha]
editor:
  path: %s
  log_dir: %s
  build_timeout: 200ms
`, fakeEditor(t, "exec sleep 10"), testcli.MkdirTemp(t))))

	args := []string{"fleet", "build"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "timed out after 200ms")
	assert.Contains(t, stderr, "success: 0, failure: 1, total: 1")
	assert.Contains(t, stderr, "alpha (timeout)")

	_, err := os.Stat("alpha/Assets/Editor/AutoWebGLBuildScript.cs")
	assert.NoError(t, err)
}

func TestClean(t *testing.T) {
	dir := testcli.MkdirTemp(t)
	testcli.Chdir(t, dir)
	testcli.Mkdir(t, "alpha")
	testcli.Mkdir(t, "alpha/Builds")
	writeFile(t, "alpha/Builds/index.html", []byte("<html></html>"))
	testcli.Mkdir(t, "beta")
	writeFile(t, "fleet.yaml", []byte("projects: [alpha, beta]\n"))

	args := []string{"fleet", "clean"}
	exitCode, _, stderr := testcli.Main(t, args, nil, run)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stderr, "1 build outputs removed")

	_, err := os.Stat("alpha/Builds")
	assert.True(t, os.IsNotExist(err))
}

func TestCommitMessage(t *testing.T) {
	base := "Auto commit: Unity project updates"
	assert.Equal(t, base, commitMessage(base, false, false))
	assert.Equal(t, base+", Unity 6 API compatibility fixes", commitMessage(base, true, false))
	assert.Equal(t, base+", and package additions", commitMessage(base, false, true))
	assert.Equal(t, base+", Unity 6 API compatibility fixes, and package additions", commitMessage(base, true, true))
}
