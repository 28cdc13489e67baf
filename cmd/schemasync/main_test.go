package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

const editScript = `
edits:
  - op: create_table
    name: items
  - op: add_column
    table: items
    name: sku
    type: text
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func replayFixture(t *testing.T) (dir, snapshot, script string) {
	t.Helper()
	dir = t.TempDir()
	snapshot = filepath.Join(dir, "shop.yaml")
	require.NoError(t, schemasync.SaveSnapshot(snapshot, schematest.Shop()))
	script = writeFile(t, dir, "edits.yaml", editScript)
	return dir, snapshot, script
}

func TestReplay(t *testing.T) {
	_, snapshot, script := replayFixture(t)

	stdout, stderr, err := execute(t, "replay", "--snapshot", snapshot, "--script", script, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, "mapped TABLE ")
	assert.Contains(t, stderr, "→ srv-1\n")
	assert.Contains(t, stderr, "mapped COLUMN ")
	assert.Contains(t, stdout, "TABLE items\n  sku: text NOT NULL\n")
}

func TestReplayRejected(t *testing.T) {
	_, snapshot, script := replayFixture(t)

	stdout, stderr, err := execute(t, "replay", "--snapshot", snapshot, "--script", script, "--reject", "sku")
	var rerr *remote.Error
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, stderr, "rolled back: edit 2")
	assert.Contains(t, stdout, "## items\n", "the confirmed table is still rendered")
	assert.NotContains(t, stdout, "sku")
}

func TestReplayWithConfigAndOutputDir(t *testing.T) {
	dir, snapshot, script := replayFixture(t)
	cfg := writeFile(t, dir, "schemasync.yaml", "authority:\n  id_prefix: auth-\noutput:\n  format: text\n")
	out := filepath.Join(dir, "out")

	_, stderr, err := execute(t, "replay", "-c", cfg, "--snapshot", snapshot, "--script", script, "-d", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "→ auth-1\n")
	assert.FileExists(t, filepath.Join(out, "_overview.txt"))
	assert.FileExists(t, filepath.Join(out, "items.txt"))
}

func TestReplayFlagErrors(t *testing.T) {
	dir, snapshot, script := replayFixture(t)

	_, _, err := execute(t, "replay")
	assert.ErrorContains(t, err, "script")

	_, _, err = execute(t, "replay", "--snapshot", snapshot, "--db-url", "sqlite://x.db", "--script", script)
	assert.ErrorContains(t, err, "only one of")

	_, _, err = execute(t, "replay", "--snapshot", snapshot, "--script", script, "-o", filepath.Join(dir, "x"), "-d", dir)
	assert.ErrorContains(t, err, "cannot use both")

	_, _, err = execute(t, "replay", "--snapshot", snapshot, "--script", script, "--format", "html")
	assert.ErrorContains(t, err, "output.format")
}

func TestImportRejectsBadURL(t *testing.T) {
	_, _, err := execute(t, "import", "--db-url", "oracle://db")
	assert.ErrorContains(t, err, "failed to import snapshot")
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"users", []string{"users"}},
		{"users, orders ,items", []string{"users", "orders", "items"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitList(tt.in), tt.in)
	}
}
