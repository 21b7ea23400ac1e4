// Package dedup remembers recently processed event IDs with bounded retention
package dedup

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Set is a bounded LRU of seen event IDs. A nil *Set is valid and never
// reports anything as seen. Safe for concurrent use.
type Set struct {
	cache *lru.Cache
}

// New creates a Set holding up to size IDs. size <= 0 disables the set and
// returns nil.
func New(size int) (*Set, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &Set{cache: cache}, nil
}

// Seen reports whether id was reserved before
func (s *Set) Seen(id string) bool {
	if s == nil || id == "" {
		return false
	}
	return s.cache.Contains(id)
}

// Reserve records id and reports whether this call was the first to do so.
// Check and insert happen under one lock, so of several concurrent callers
// with the same id exactly one gets true. A nil set reserves everything.
func (s *Set) Reserve(id string) bool {
	if s == nil || id == "" {
		return true
	}
	present, _ := s.cache.ContainsOrAdd(id, struct{}{})
	return !present
}

// Len returns the number of remembered IDs
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}
