package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stevelr/kv-assets/internal/assets"
	"github.com/stevelr/kv-assets/internal/config"
	"github.com/stevelr/kv-assets/internal/journal"
	"github.com/stevelr/kv-assets/internal/kv"
	"github.com/stretchr/testify/require"
)

// fakeKV is an in-memory stand-in for the remote namespace, speaking
// just enough of the values API for the sync path.
type fakeKV struct {
	mu     sync.Mutex
	values map[string][]byte
	puts   int
}

func (f *fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.Error(w, "bad path", http.StatusNotFound)
		return
	}
	key := r.URL.Path[i+len("/values/"):]

	switch r.Method {
	case http.MethodGet:
		value, ok := f.values[key]
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		w.Write(value)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		f.values[key] = body
		f.puts++
		w.Write([]byte(`{"success":true,"errors":[],"messages":[]}`))
	case http.MethodDelete:
		delete(f.values, key)
		w.Write([]byte(`{"success":true}`))
	default:
		http.Error(w, "bad method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeKV) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	return keys
}

func newTestService(t *testing.T) (*Service, *fakeKV, *kv.Client) {
	t.Helper()
	fake := &fakeKV{values: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := kv.NewClient(context.Background(), "acct", "ns", "token", kv.WithEndpoint(srv.URL))
	dir := t.TempDir()
	cfg := config.Config{
		AccountID:   "acct",
		NamespaceID: "ns",
		AssetDir:    filepath.Join(dir, "public"),
		Output:      filepath.Join(dir, "data", "assets.bin"),
	}
	require.NoError(t, os.MkdirAll(cfg.AssetDir, 0755))
	return newWithClient(cfg, client, filepath.Join(dir, "journal.sqlite")), fake, client
}

func writeAsset(t *testing.T, s *Service, name, content string) {
	t.Helper()
	path := filepath.Join(s.cfg.AssetDir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readIndex(t *testing.T, s *Service) assets.AssetIndex {
	t.Helper()
	raw, err := os.ReadFile(s.cfg.Output)
	require.NoError(t, err)
	index, err := assets.Decode(raw)
	require.NoError(t, err)
	return index
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	s, fake, client := newTestService(t)
	writeAsset(t, s, "index.html", "<html></html>")
	writeAsset(t, s, "css/site.css", "body {}")

	require.NoError(t, s.Sync(ctx, false))

	// both files uploaded under their fingerprinted keys
	index := readIndex(t, s)
	require.Len(t, index, 2)
	require.ElementsMatch(t, fake.keys(), []string{
		index["index.html"].Path,
		index["css/site.css"].Path,
	})
	require.Equal(t, 2, fake.puts)

	// identical rerun: no uploads, artifact untouched
	require.NoError(t, s.Sync(ctx, false))
	require.Equal(t, 2, fake.puts)
	require.Equal(t, index, readIndex(t, s))

	// the artifact resolves end to end through the real client
	raw, err := os.ReadFile(s.cfg.Output)
	require.NoError(t, err)
	resolver := assets.NewResolver(raw, client)
	blob, ok, err := resolver.GetAsset(ctx, "/index.html")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("<html></html>"), blob)
}

func TestSyncChangeAndPrune(t *testing.T) {
	ctx := context.Background()
	s, fake, _ := newTestService(t)
	writeAsset(t, s, "index.html", "v1")
	require.NoError(t, s.Sync(ctx, false))

	oldKey := readIndex(t, s)["index.html"].Path

	// content change: new key uploaded, stale key kept until pruned
	writeAsset(t, s, "index.html", "v2, now longer")
	require.NoError(t, s.Sync(ctx, false))
	newKey := readIndex(t, s)["index.html"].Path
	require.NotEqual(t, oldKey, newKey)
	require.ElementsMatch(t, fake.keys(), []string{oldKey, newKey})

	// prune removes the stale key
	require.NoError(t, s.Sync(ctx, true))
	require.ElementsMatch(t, fake.keys(), []string{newKey})
}

func TestSyncRevertRescuesPendingKey(t *testing.T) {
	ctx := context.Background()
	s, fake, _ := newTestService(t)
	writeAsset(t, s, "index.html", "v1")
	require.NoError(t, s.Sync(ctx, false))
	v1Key := readIndex(t, s)["index.html"].Path

	// change defers v1's key for deletion
	writeAsset(t, s, "index.html", "v2, now longer")
	require.NoError(t, s.Sync(ctx, false))
	v2Key := readIndex(t, s)["index.html"].Path

	// revert: v1's key is referenced again and must survive the prune
	writeAsset(t, s, "index.html", "v1")
	require.NoError(t, s.Sync(ctx, false))
	require.NoError(t, s.Sync(ctx, true))

	require.Equal(t, v1Key, readIndex(t, s)["index.html"].Path)
	require.ElementsMatch(t, fake.keys(), []string{v1Key})
	require.NotContains(t, fake.keys(), v2Key)
}

func TestSyncRemovedFile(t *testing.T) {
	ctx := context.Background()
	s, fake, _ := newTestService(t)
	writeAsset(t, s, "keep.txt", "keep")
	writeAsset(t, s, "drop.txt", "drop")
	require.NoError(t, s.Sync(ctx, false))

	require.NoError(t, os.Remove(filepath.Join(s.cfg.AssetDir, "drop.txt")))
	require.NoError(t, s.Sync(ctx, true))

	index := readIndex(t, s)
	require.Len(t, index, 1)
	require.ElementsMatch(t, fake.keys(), []string{index["keep.txt"].Path})
}

func TestSyncInvalidAssetDir(t *testing.T) {
	s, _, _ := newTestService(t)
	s.cfg.AssetDir = filepath.Join(s.cfg.AssetDir, "does-not-exist")
	require.Error(t, s.Sync(context.Background(), false))
}

func TestSyncWritesJournal(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	writeAsset(t, s, "a.txt", "content")
	require.NoError(t, s.Sync(ctx, false))

	j, err := journal.Open(ctx, s.journalPath)
	require.NoError(t, err)
	defer j.Close()
	rows, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "put", rows[0].Op)
	require.True(t, rows[0].OK)
}

func TestDump(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	writeAsset(t, s, "a.txt", "content")
	require.NoError(t, s.Sync(ctx, false))

	var out strings.Builder
	require.NoError(t, Dump(&out, s.cfg.Output))
	require.Contains(t, out.String(), "a.txt")

	// corrupt artifact: typed decode error, no output
	require.NoError(t, os.WriteFile(s.cfg.Output, []byte("garbage"), 0644))
	var deserializeErr *assets.DeserializeError
	require.ErrorAs(t, Dump(&out, s.cfg.Output), &deserializeErr)
}
