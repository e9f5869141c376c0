package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the snag binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "snag"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "snag")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createJSFixture creates a temporary directory with a .git dir and two
// JavaScript files, one clean and one with findings.
func createJSFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	bad := `function f() {
	arguments.map(x => x * 2);
}
new Array(5).filter(x => x > 1);
`
	clean := `function g(...args) {
	return args.map(x => x);
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.js"), []byte(bad), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clean.js"), []byte(clean), 0o644))
	return dir
}

// runCmd runs the binary and returns stdout plus the exit code.
func runCmd(t *testing.T, bin string, dir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err == nil {
		return string(out), 0
	}
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok, "running %s: %v", bin, err)
	return string(out), exitErr.ExitCode()
}

type checkEnvelope struct {
	Command string `json:"command"`
	Results []struct {
		Path        string `json:"path"`
		Cached      bool   `json:"cached"`
		Diagnostics []struct {
			Rule     string `json:"rule"`
			Severity string `json:"severity"`
			Message  string `json:"message"`
		} `json:"diagnostics"`
	} `json:"results"`
	TotalCount int `json:"total_count"`
}

func TestCheck_FindsDiagnostics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createJSFixture(t)

	out, code := runCmd(t, bin, fixture, "check", ".", "--format", "json")
	assert.Equal(t, 1, code, "findings should exit 1")

	var env checkEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "check", env.Command)
	assert.Equal(t, 2, env.TotalCount)
	require.Len(t, env.Results, 2)

	rules := map[string]bool{}
	for _, f := range env.Results {
		for _, d := range f.Diagnostics {
			rules[d.Rule] = true
		}
	}
	assert.True(t, rules["bad-array-method-on-arguments"])
	assert.True(t, rules["uninvoked-array-callback"])
}

func TestCheck_SecondRunReplaysFromCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createJSFixture(t)

	first, _ := runCmd(t, bin, fixture, "check", ".", "--format", "json")
	require.FileExists(t, filepath.Join(fixture, ".snag", "cache.db"))

	second, _ := runCmd(t, bin, fixture, "check", ".", "--format", "json")

	var env1, env2 checkEnvelope
	require.NoError(t, json.Unmarshal([]byte(first), &env1))
	require.NoError(t, json.Unmarshal([]byte(second), &env2))

	assert.Equal(t, env1.TotalCount, env2.TotalCount)
	for _, f := range env2.Results {
		assert.True(t, f.Cached, "%s should replay from cache", f.Path)
	}
}

func TestCheck_NoCacheSkipsDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createJSFixture(t)

	_, code := runCmd(t, bin, fixture, "check", ".", "--no-cache", "--fail-on", "never")
	assert.Equal(t, 0, code)
	assert.NoFileExists(t, filepath.Join(fixture, ".snag", "cache.db"))
}

func TestCheck_FailOnNever(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createJSFixture(t)

	_, code := runCmd(t, bin, fixture, "check", ".", "--fail-on", "never")
	assert.Equal(t, 0, code)
}

func TestCheck_ConfigDisablesRule(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createJSFixture(t)

	cfg := `{"rules": {"bad-array-method-on-arguments": "off", "uninvoked-array-callback": "error"}}`
	require.NoError(t, os.WriteFile(filepath.Join(fixture, "snag.json"), []byte(cfg), 0o644))

	out, code := runCmd(t, bin, fixture, "check", ".", "--format", "json", "--no-cache")
	assert.Equal(t, 1, code)

	var env checkEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.Equal(t, 1, env.TotalCount)
	for _, f := range env.Results {
		for _, d := range f.Diagnostics {
			assert.Equal(t, "uninvoked-array-callback", d.Rule)
			assert.Equal(t, "error", d.Severity)
		}
	}
}

func TestRules_ListsBuiltinsAndScripts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	out, code := runCmd(t, bin, t.TempDir(), "rules", "--format", "json")
	assert.Equal(t, 0, code)

	var env struct {
		Results []struct {
			Name     string `json:"name"`
			Category string `json:"category"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))

	byName := map[string]string{}
	for _, r := range env.Results {
		byName[r.Name] = r.Category
	}
	assert.Equal(t, "correctness", byName["bad-array-method-on-arguments"])
	assert.Equal(t, "correctness", byName["uninvoked-array-callback"])
	assert.Equal(t, "script", byName["no-debugger"])
}
