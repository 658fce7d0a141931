package scan

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stevelr/kv-assets/internal/assets"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")
	writeFile(t, dir, "css/site.css", "body {}")
	writeFile(t, dir, ".hidden", "skipped")
	writeFile(t, dir, ".git/config", "skipped")

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// sorted by logical path
	require.Equal(t, "css/site.css", entries[0].LogicalPath)
	require.Equal(t, "index.html", entries[1].LogicalPath)

	// storage key: path flattened, fingerprint before the extension
	require.Regexp(t, regexp.MustCompile(`^css-site\.[0-9a-f]{10}\.css$`), entries[0].StorageKey)
	require.Regexp(t, regexp.MustCompile(`^index\.[0-9a-f]{10}\.html$`), entries[1].StorageKey)
}

func TestScanKeyStableAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/b.txt", "same content")

	first, err := Scan(dir)
	require.NoError(t, err)
	second, err := Scan(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// content change produces a different key
	writeFile(t, dir, "a/b.txt", "different content")
	third, err := Scan(dir)
	require.NoError(t, err)
	require.NotEqual(t, first[0].StorageKey, third[0].StorageKey)
}

func TestScanKeyWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "LICENSE", "text")

	entries, err := Scan(dir)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^LICENSE\.[0-9a-f]{10}$`), entries[0].StorageKey)
}

func TestDiff(t *testing.T) {
	scanned := []assets.Entry{
		{LogicalPath: "a", StorageKey: "a.111"},
		{LogicalPath: "b", StorageKey: "b.222"},
		{LogicalPath: "c", StorageKey: "c.333"},
	}
	previous := assets.AssetIndex{
		"a": {Path: "a.111"}, // unchanged
		"b": {Path: "b.old"}, // content changed, old key stale
		"d": {Path: "d.444"}, // deleted locally
	}

	plan := Diff(scanned, previous)
	require.Equal(t, scanned, plan.Entries)
	require.Equal(t, []assets.Entry{
		{LogicalPath: "b", StorageKey: "b.222"},
		{LogicalPath: "c", StorageKey: "c.333"},
	}, plan.Upload)
	require.Equal(t, []string{"b.old", "d.444"}, plan.Delete)
}

func TestDiffNoPrevious(t *testing.T) {
	scanned := []assets.Entry{{LogicalPath: "a", StorageKey: "a.111"}}

	plan := Diff(scanned, nil)
	require.Equal(t, scanned, plan.Upload)
	require.Empty(t, plan.Delete)
}

func TestDiffNoChanges(t *testing.T) {
	scanned := []assets.Entry{{LogicalPath: "a", StorageKey: "a.111"}}
	previous := assets.AssetIndex{"a": {Path: "a.111"}}

	plan := Diff(scanned, previous)
	require.Empty(t, plan.Upload)
	require.Empty(t, plan.Delete)
}
