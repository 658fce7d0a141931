package assets

import (
	"errors"
	"fmt"
)

// ErrEmptyKey is returned when a lookup path normalizes to the empty string.
var ErrEmptyKey = errors.New("empty key passed to lookup")

// DeserializeError wraps a failure to decode a persisted asset index.
// The artifact is malformed and must be regenerated; it is never treated
// as an empty index.
type DeserializeError struct {
	Err error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("deserializing asset index: %s", e.Err)
}

func (e *DeserializeError) Unwrap() error {
	return e.Err
}

// MissingFileError reports a file listed for indexing that could not be
// stat'ed at build time. The build run is aborted; a partial index with
// missing entries is worse than a failed build.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("reading asset file '%s': %s", e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

// ClockError reports a file whose modification time lies before the Unix
// epoch and therefore cannot be represented in the index.
type ClockError struct {
	Path string
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("invalid modification time for file '%s'", e.Path)
}

// StaleKeyError reports an index entry whose storage key no longer exists
// in the remote store. This is distinct from a plain lookup miss: the path
// is indexed but the blob is gone (deleted remotely, expired via TTL, or
// the index is out of date).
type StaleKeyError struct {
	LogicalPath string
	StorageKey  string
	Err         error
}

func (e *StaleKeyError) Error() string {
	return fmt.Sprintf("asset '%s' is indexed under key '%s' but missing from the remote store: %s",
		e.LogicalPath, e.StorageKey, e.Err)
}

func (e *StaleKeyError) Unwrap() error {
	return e.Err
}
