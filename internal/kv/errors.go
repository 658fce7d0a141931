package kv

import (
	"errors"
	"fmt"
)

// ErrTTLTooShort is returned by Put before any network call when an
// expiration TTL below the 60 second store minimum is requested.
var ErrTTLTooShort = errors.New("expiration TTL must be at least 60 seconds")

// ErrNotFound marks a key the remote store does not have. Match with
// errors.Is; the concrete *NotFoundError carries the key and HTTP status.
var ErrNotFound = errors.New("key not found")

// NotFoundError reports a Get for a key the store could not return.
type NotFoundError struct {
	Key    string
	Status int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("KV key '%s' not found, status=%d", e.Key, e.Status)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RemoteError reports a non-2xx response to a write or delete. Status and
// body are preserved so the caller can decide retry policy; the client
// itself never retries.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("KV API error, status=%d: %s", e.Status, e.Body)
}

// TransportError wraps a network-level failure (connection, TLS, body
// read) on its way to or from the remote store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("KV %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
