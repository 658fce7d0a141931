package assets

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/stevelr/kv-assets/internal/kv"
)

// BlobGetter fetches a single blob from the remote store by storage key.
// A missing key must report kv.ErrNotFound through its error chain.
type BlobGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Resolver serves static-asset lookups out of a persisted index artifact.
//
// It holds the raw artifact bytes and decodes them on first use: many of
// the request paths a server handles are not asset paths at all, and
// decoding the full index eagerly on every instance start would be wasted
// work. The decoded index is cached and shared by all subsequent lookups.
type Resolver struct {
	raw   []byte
	store BlobGetter

	mu    sync.Mutex
	index AssetIndex
}

// NewResolver wraps the raw index artifact bytes and a remote store
// handle. The bytes are not validated until the first lookup.
func NewResolver(raw []byte, store BlobGetter) *Resolver {
	return &Resolver{raw: raw, store: store}
}

// ensureIndex decodes the artifact once under the lock; concurrent
// callers wait and reuse the cached result. A decode failure leaves the
// cache empty, so a later call retries against the same bytes instead of
// serving a half-populated index.
func (r *Resolver) ensureIndex() (AssetIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil {
		index, err := Decode(r.raw)
		if err != nil {
			return nil, err
		}
		r.index = index
	}
	return r.index, nil
}

// LookupKey resolves a request path to its asset metadata without
// touching the remote store. One leading '/' is stripped; a path that
// normalizes to the empty string is ErrEmptyKey. A successful decode with
// no matching entry returns ok=false and no error.
func (r *Resolver) LookupKey(path string) (AssetMetadata, bool, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return AssetMetadata{}, false, ErrEmptyKey
	}
	index, err := r.ensureIndex()
	if err != nil {
		return AssetMetadata{}, false, err
	}
	md, ok := index[path]
	return md, ok, nil
}

// GetAsset resolves path through the index and fetches the blob from the
// remote store under the metadata's storage key. ok=false means the path
// is simply not indexed. An index hit followed by a remote miss is a
// *StaleKeyError, not a plain miss: the entry was deleted remotely,
// expired via TTL, or the index is out of date, and callers should
// treat that as a data-integrity signal rather than a routine 404.
func (r *Resolver) GetAsset(ctx context.Context, path string) ([]byte, bool, error) {
	md, ok, err := r.LookupKey(path)
	if err != nil || !ok {
		return nil, false, err
	}
	blob, err := r.store.Get(ctx, md.Path)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, false, &StaleKeyError{LogicalPath: path, StorageKey: md.Path, Err: err}
		}
		return nil, false, err
	}
	return blob, true, nil
}
