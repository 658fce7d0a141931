package assets

import (
	"cmp"
	"strings"
)

// AssetMetadata describes one object stored in the remote KV namespace.
// Immutable once constructed.
type AssetMetadata struct {
	// Path is the storage key within the namespace, without a leading slash.
	// For fingerprinted uploads this differs from the logical lookup path.
	Path string `cbor:"path" json:"path"`
	// Modified is the file's last modification time, UTC seconds since epoch.
	Modified uint64 `cbor:"modified" json:"modified"`
	// Size is the file length in bytes.
	Size uint64 `cbor:"size" json:"size"`
}

// Compare imposes a total order over (Path, Modified, Size) so that
// metadata sets can be diffed and asserted on deterministically.
func (m AssetMetadata) Compare(other AssetMetadata) int {
	if c := strings.Compare(m.Path, other.Path); c != 0 {
		return c
	}
	if c := cmp.Compare(m.Modified, other.Modified); c != 0 {
		return c
	}
	return cmp.Compare(m.Size, other.Size)
}

// AssetIndex maps logical asset paths to metadata. Path keys have the
// leading slash removed and are never empty. An index is built wholesale
// by Build, persisted as a single snapshot, and never mutated afterwards;
// the next build supersedes it.
type AssetIndex map[string]AssetMetadata
