package assets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stevelr/kv-assets/internal/util"
)

// Entry pairs a logical asset path with the storage key it should be
// served from. Entries are produced by the scan/diff step.
type Entry struct {
	LogicalPath string
	StorageKey  string
}

// Outcome reports what WriteArtifact did with the newly built index.
type Outcome int

const (
	// OutcomeNew means no previous artifact existed; the new one was written.
	OutcomeNew Outcome = iota
	// OutcomeUpdated means the index changed; the artifact was rewritten.
	OutcomeUpdated
	// OutcomeNoChange means the bytes are identical to the previous
	// artifact; nothing was written. Leaving the file untouched keeps
	// downstream cache invalidation keyed on the artifact's mtime quiet.
	OutcomeNoChange
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeNoChange:
		return "no change"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Build constructs a fresh index from the supplied entries, reading size
// and modification time from the files under assetDir. A file that cannot
// be stat'ed aborts the build with *MissingFileError: it was deleted
// between scan and build, and silently skipping it would persist a lie.
//
// Duplicate logical paths resolve last-write-wins; the upstream diff is
// expected to deduplicate, so this is a resolution policy, not an error.
func Build(assetDir string, entries []Entry) (AssetIndex, error) {
	index := make(AssetIndex, len(entries))
	for _, entry := range entries {
		key := strings.TrimPrefix(entry.LogicalPath, "/")
		if key == "" {
			return nil, ErrEmptyKey
		}
		info, err := os.Stat(filepath.Join(assetDir, filepath.FromSlash(key)))
		if err != nil {
			return nil, &MissingFileError{Path: entry.LogicalPath, Err: err}
		}
		modified := info.ModTime().Unix()
		if modified < 0 {
			return nil, &ClockError{Path: entry.LogicalPath}
		}
		index[key] = AssetMetadata{
			Path:     entry.StorageKey,
			Modified: uint64(modified),
			Size:     uint64(info.Size()),
		}
	}
	return index, nil
}

// WriteArtifact serializes the index and persists it at path, creating
// parent directories as needed. previous carries the bytes of the last
// persisted artifact (nil when none existed); when the new bytes are
// identical no write is performed.
func WriteArtifact(path string, index AssetIndex, previous []byte) (Outcome, error) {
	data, err := Encode(index)
	if err != nil {
		return OutcomeNew, err
	}

	outcome := OutcomeNew
	if previous != nil {
		if bytes.Equal(data, previous) {
			outcome = OutcomeNoChange
		} else {
			outcome = OutcomeUpdated
		}
	}
	if outcome == OutcomeNoChange {
		return outcome, nil
	}

	f, err := util.OpenWithParents(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return outcome, fmt.Errorf("could not open artifact '%s' for writing: %w", path, err)
	}
	defer f.Close()
	if _, err = f.Write(data); err != nil {
		return outcome, fmt.Errorf("could not write artifact '%s': %w", path, err)
	}
	return outcome, nil
}
