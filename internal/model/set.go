package model

import (
	"encoding/json"
	"sort"
)

// StringSet is a membership-only set of identifiers. It serializes as a
// sorted JSON array.
type StringSet map[string]struct{}

// NewStringSet returns a set holding ids.
func NewStringSet(ids ...string) StringSet {
	s := make(StringSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership of id.
func (s StringSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy. A nil set clones to an empty one.
func (s StringSet) Clone() StringSet {
	c := make(StringSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewStringSet(ids...)
	return nil
}
