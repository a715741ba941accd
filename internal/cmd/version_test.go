package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersionInfo(t *testing.T, version, commit, built string) {
	t.Helper()
	original := versionInfo
	t.Cleanup(func() { versionInfo = original })
	SetVersionInfo(version, commit, built)
}

func TestWriteVersionBasic(t *testing.T) {
	withVersionInfo(t, "1.2.3", "abc123", "2026-01-02")

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, "platelog", false))
	assert.Equal(t, "platelog 1.2.3\n", buf.String())
}

func TestWriteVersionExtended(t *testing.T) {
	withVersionInfo(t, "1.2.3", "abc123", "2026-01-02")

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, "platelog", true))

	out := buf.String()
	assert.Contains(t, out, "platelog 1.2.3\n")
	assert.Contains(t, out, "Commit: abc123\n")
	assert.Contains(t, out, "Built: 2026-01-02\n")
	assert.Contains(t, out, "Go: go")
	assert.Contains(t, out, "Gofulmen: ")
	assert.Contains(t, out, "Crucible: ")
}
