package core

import "sync"

// Selection is the ordered set of contact ids an operator picked for a bulk
// action. It is tied to one group filter and empties when the filter changes.
type Selection struct {
	mu     sync.Mutex
	ids    []string
	member map[string]struct{}
	filter string
}

// NewSelection returns an empty selection for the given group filter.
func NewSelection(filter string) *Selection {
	return &Selection{member: make(map[string]struct{}), filter: filter}
}

// Toggle adds id if absent and removes it if present. It reports whether id
// is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.member[id]; ok {
		delete(s.member, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
		return false
	}
	s.addLocked(id)
	return true
}

// Add selects each id not already selected, keeping first-selected order.
func (s *Selection) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.addLocked(id)
	}
}

// SelectAll selects every contact on a page.
func (s *Selection) SelectAll(page []Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range page {
		s.addLocked(c.ID)
	}
}

func (s *Selection) addLocked(id string) {
	if _, ok := s.member[id]; ok {
		return
	}
	s.member[id] = struct{}{}
	s.ids = append(s.ids, id)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.member[id]
	return ok
}

// IDs returns the selected ids in selection order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Selection) clearLocked() {
	s.ids = nil
	s.member = make(map[string]struct{})
}

// SetFilter records the group filter the selection belongs to, clearing it
// if the filter changed.
func (s *Selection) SetFilter(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group != s.filter {
		s.filter = group
		s.clearLocked()
	}
}

// Filter returns the group filter the selection belongs to.
func (s *Selection) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}
