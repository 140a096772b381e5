package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"4d63.com/testcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/leighmcculloch/fleet/internal/config"
)

const sample = `{
    "dependencies": {
        "com.unity.ugui": "2.0.0",
        "com.dannect.toolkit": "https://github.com/mmporong/toolkit.git#v1",
        "com.unity.test-framework": "1.4.5"
    },
    "displayName": "실험 시뮬레이션"
}
`

func writeManifest(t *testing.T, content string) string {
	project := testcli.MkdirTemp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(project, "Packages"), 0o755))
	require.NoError(t, os.WriteFile(Path(project), []byte(content), 0o644))
	return project
}

func TestMergeAddsAndUpdates(t *testing.T) {
	project := writeManifest(t, sample)
	packages := []config.Package{
		{Name: "com.dannect.toolkit", URL: "https://github.com/mmporong/toolkit.git#v2"},
		{Name: "com.unity.ugui", URL: "2.0.0"},
		{Name: "com.dannect.copier", URL: "https://github.com/mmporong/copier.git"},
	}

	changed, err := Merge(project, packages)
	require.NoError(t, err)
	assert.True(t, changed)

	out, err := os.ReadFile(Path(project))
	require.NoError(t, err)
	got := string(out)
	assert.Equal(t, "https://github.com/mmporong/toolkit.git#v2", gjson.Get(got, `dependencies.com\.dannect\.toolkit`).String())
	assert.Equal(t, "https://github.com/mmporong/copier.git", gjson.Get(got, `dependencies.com\.dannect\.copier`).String())
	assert.Equal(t, "2.0.0", gjson.Get(got, `dependencies.com\.unity\.ugui`).String())
	assert.Contains(t, got, `"displayName": "실험 시뮬레이션"`)
	assert.Contains(t, got, "\n        \"com.unity.ugui\": \"2.0.0\",\n")

	// Existing keys keep their order and new keys go last.
	var keys []string
	gjson.Get(got, "dependencies").ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"com.unity.ugui", "com.dannect.toolkit", "com.unity.test-framework", "com.dannect.copier"}, keys)
	assert.Less(t, strings.Index(got, "dependencies"), strings.Index(got, "displayName"))

	changed, err = Merge(project, packages)
	require.NoError(t, err)
	assert.False(t, changed)
	again, err := os.ReadFile(Path(project))
	require.NoError(t, err)
	assert.Equal(t, got, string(again))
}

func TestMergeNoChangeLeavesFile(t *testing.T) {
	project := writeManifest(t, sample)

	changed, err := Merge(project, []config.Package{{Name: "com.unity.ugui", URL: "2.0.0"}})
	require.NoError(t, err)
	assert.False(t, changed)

	out, err := os.ReadFile(Path(project))
	require.NoError(t, err)
	assert.Equal(t, sample, string(out))
}

func TestMergeCreatesDependencies(t *testing.T) {
	project := writeManifest(t, `{"scopedRegistries": []}`)

	changed, err := Merge(project, []config.Package{{Name: "com.a.b", URL: "https://example.com/b.git"}})
	require.NoError(t, err)
	assert.True(t, changed)

	out, err := os.ReadFile(Path(project))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.git", gjson.GetBytes(out, `dependencies.com\.a\.b`).String())
}

func TestMergeErrors(t *testing.T) {
	_, err := Merge(testcli.MkdirTemp(t), nil)
	assert.ErrorIs(t, err, ErrNoManifest)

	project := writeManifest(t, `{"dependencies": `)
	_, err = Merge(project, []config.Package{{Name: "a", URL: "b"}})
	assert.ErrorContains(t, err, "invalid JSON")

	project = writeManifest(t, `{"dependencies": []}`)
	_, err = Merge(project, []config.Package{{Name: "a", URL: "b"}})
	assert.ErrorContains(t, err, "not an object")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `com\.unity\.ugui`, escape("com.unity.ugui"))
	assert.Equal(t, `a\*b\?c\#d\@e\|f`, escape("a*b?c#d@e|f"))
}
