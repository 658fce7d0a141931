// Package scan walks the asset directory, derives fingerprinted storage
// keys, and diffs the result against the previously persisted index to
// decide which blobs need uploading and which remote keys are stale.
package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stevelr/kv-assets/internal/assets"
)

// fingerprintLen is the number of hash hex digits embedded in a storage
// key. Ten digits keep keys short while making collisions between
// distinct file contents vanishingly unlikely for any realistic site.
const fingerprintLen = 10

// Scan walks root and returns one entry per regular file, sorted by
// logical path. Dot-files and dot-directories are skipped. Storage keys
// are content-fingerprinted, so an unchanged file always maps to the
// same key across runs.
func Scan(root string) ([]assets.Entry, error) {
	var entries []assets.Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		logical := filepath.ToSlash(rel)
		key, err := storageKey(p, logical)
		if err != nil {
			return err
		}
		entries = append(entries, assets.Entry{LogicalPath: logical, StorageKey: key})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan asset directory '%s': %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LogicalPath < entries[j].LogicalPath
	})
	return entries, nil
}

// storageKey derives the remote key for a file: the logical path with
// '/' flattened to '-' and a content-hash fingerprint injected before
// the extension, e.g. "a/b.txt" -> "a-b.c0ffee1234.txt".
func storageKey(filePath, logical string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("could not open '%s' for hashing: %w", filePath, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", fmt.Errorf("could not hash '%s': %w", filePath, err)
	}
	digest := hex.EncodeToString(h.Sum(nil))[:fingerprintLen]

	flat := strings.ReplaceAll(logical, "/", "-")
	ext := path.Ext(flat)
	return fmt.Sprintf("%s.%s%s", strings.TrimSuffix(flat, ext), digest, ext), nil
}

// Plan is the desired-state diff between a directory scan and the
// previously persisted index.
type Plan struct {
	// Entries is the full desired set; it feeds the index builder.
	Entries []assets.Entry
	// Upload holds entries whose storage key the previous index does not
	// reference, i.e. new files or files whose content changed.
	Upload []assets.Entry
	// Delete holds storage keys the previous index referenced that no
	// scanned file maps to anymore.
	Delete []string
}

// Diff computes the upload/delete plan. previous may be nil (no prior
// artifact), in which case everything is uploaded and nothing deleted.
// Because storage keys are content-fingerprinted, key-set comparison
// doubles as change detection: a modified file produces a fresh key to
// upload and leaves its old key behind for deletion.
func Diff(scanned []assets.Entry, previous assets.AssetIndex) Plan {
	plan := Plan{Entries: scanned}

	prevKeys := make(map[string]struct{}, len(previous))
	for _, md := range previous {
		prevKeys[md.Path] = struct{}{}
	}
	wantKeys := make(map[string]struct{}, len(scanned))
	for _, entry := range scanned {
		wantKeys[entry.StorageKey] = struct{}{}
		if _, ok := prevKeys[entry.StorageKey]; !ok {
			plan.Upload = append(plan.Upload, entry)
		}
	}
	for key := range prevKeys {
		if _, ok := wantKeys[key]; !ok {
			plan.Delete = append(plan.Delete, key)
		}
	}
	sort.Strings(plan.Delete)
	return plan
}
