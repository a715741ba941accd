package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStandalone compiles cmd/platelog and copies the binary into an empty
// directory, so identity and config must come from what is embedded.
func buildStandalone(t *testing.T) (binary, workDir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}
	if testing.Short() {
		t.Skip("builds the binary")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot)

	built := filepath.Join(t.TempDir(), "platelog")
	build := exec.Command("go", "build",
		"-ldflags", "-X main.version=9.9.9-test",
		"-o", built, "./cmd/platelog")
	build.Dir = repoRoot
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build:\n%s", out)

	workDir = t.TempDir()
	data, err := os.ReadFile(built)
	require.NoError(t, err)
	binary = filepath.Join(workDir, "platelog")
	require.NoError(t, os.WriteFile(binary, data, 0o755))
	return binary, workDir
}

func runBinary(t *testing.T, binary, dir string, args ...string) string {
	t.Helper()
	run := exec.Command(binary, args...)
	run.Dir = dir
	run.Env = append(os.Environ(),
		"HOME="+dir,
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"XDG_DATA_HOME="+filepath.Join(dir, "data"),
		"FULMEN_APP_IDENTITY_PATH=",
	)
	out, err := run.CombinedOutput()
	require.NoError(t, err, "%s %v:\n%s", filepath.Base(binary), args, out)
	return string(out)
}

func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	binary, dir := buildStandalone(t)

	assert.Contains(t, runBinary(t, binary, dir, "version"), "platelog 9.9.9-test")

	help := runBinary(t, binary, dir, "--help")
	for _, sub := range []string{"analyze", "history", "serve", "health"} {
		assert.Contains(t, help, sub)
	}

	runBinary(t, binary, dir, "health")
}
