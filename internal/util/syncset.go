package util

import "sync"

// SyncSet is a mutex-guarded string set. The watcher goroutine adds
// changed paths while the debounce loop periodically drains them.
type SyncSet struct {
	mu    sync.Mutex
	items map[string]struct{}
}

func NewSyncSet() *SyncSet {
	return &SyncSet{items: make(map[string]struct{})}
}

func (s *SyncSet) Add(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item] = struct{}{}
}

// Drain removes and returns all items currently in the set.
func (s *SyncSet) Drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]string, 0, len(s.items))
	for item := range s.items {
		items = append(items, item)
	}
	clear(s.items)
	return items
}

func (s *SyncSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
