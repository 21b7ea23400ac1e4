// Package ignore decides which users never receive review requests
package ignore

import (
	"strings"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
)

// Set is an immutable set of lowercased ids, usernames and username#discriminator tags
type Set struct {
	keys map[string]struct{}
}

// New builds a Set from raw entries. Entries are trimmed and lowercased;
// blanks are dropped.
func New(entries []string) *Set {
	s := &Set{keys: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			s.keys[e] = struct{}{}
		}
	}
	return s
}

// Len returns the number of entries
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Contains reports whether user matches any entry by id, username or tag
func (s *Set) Contains(user *types.User) bool {
	if s == nil || user == nil || len(s.keys) == 0 {
		return false
	}
	for _, k := range []string{
		strings.ToLower(user.ID),
		strings.ToLower(user.Username),
		strings.ToLower(user.Tag()),
	} {
		if k == "" {
			continue
		}
		if _, ok := s.keys[k]; ok {
			return true
		}
	}
	return false
}
