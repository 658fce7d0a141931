package kv

import "context"

// BatchKeyMax mirrors the remote API's cap on keys per bulk call. Callers
// moving more keys than this in one run should activate progress
// reporting; the client itself does not rate-limit.
const BatchKeyMax = 10000

// KeyValue is one pending write for PutBulk.
type KeyValue struct {
	Key   string
	Value []byte
}

// KeyError records a single failed key within a bulk operation.
type KeyError struct {
	Key string
	Err error
}

// BulkResult partitions a bulk operation's keys into successes and
// failures. Bulk operations are not atomic: a failed key never aborts
// the remaining keys.
type BulkResult struct {
	Succeeded []string
	Failed    []KeyError
}

// OK reports whether every key succeeded.
func (r BulkResult) OK() bool {
	return len(r.Failed) == 0
}

// Progress is called after each key of a bulk operation with the number
// of keys attempted so far and the total.
type Progress func(done, total int)

// PutBulk writes each pair in order, collecting per-key outcomes.
// ttlSeconds applies to every write (zero means no expiration).
// progress may be nil.
func (c *Client) PutBulk(ctx context.Context, pairs []KeyValue, ttlSeconds uint64, progress Progress) BulkResult {
	var result BulkResult
	for i, pair := range pairs {
		if err := c.Put(ctx, pair.Key, pair.Value, ttlSeconds); err != nil {
			result.Failed = append(result.Failed, KeyError{Key: pair.Key, Err: err})
		} else {
			result.Succeeded = append(result.Succeeded, pair.Key)
		}
		if progress != nil {
			progress(i+1, len(pairs))
		}
	}
	return result
}

// DeleteBulk removes each key in order, collecting per-key outcomes.
// progress may be nil.
func (c *Client) DeleteBulk(ctx context.Context, keys []string, progress Progress) BulkResult {
	var result BulkResult
	for i, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			result.Failed = append(result.Failed, KeyError{Key: key, Err: err})
		} else {
			result.Succeeded = append(result.Succeeded, key)
		}
		if progress != nil {
			progress(i+1, len(keys))
		}
	}
	return result
}
