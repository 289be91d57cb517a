// Package selection holds the single selected-agent id: one writer (user
// intent), many readers.
package selection

import "sync"

// Store holds the currently selected agent id, or none.
type Store struct {
	mu       sync.Mutex
	selected string
	has      bool
	subs     map[int]func()
	nextSub  int
}

// NewStore returns a store with nothing selected.
func NewStore() *Store {
	return &Store{subs: map[int]func(){}}
}

// Select sets the selected agent and notifies subscribers. Re-selecting
// the already-selected agent still notifies: a fresh selection action is
// meaningful even when the id is unchanged (it may reopen a dismissed
// popup).
func (s *Store) Select(agentID string) {
	s.mu.Lock()
	s.selected = agentID
	s.has = true
	subs := s.snapshotSubs()
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Clear removes the selection and notifies subscribers.
func (s *Store) Clear() {
	s.mu.Lock()
	s.selected = ""
	s.has = false
	subs := s.snapshotSubs()
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Selected returns the selected agent id, if any.
func (s *Store) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.has
}

// Subscribe registers fn to run on every selection action and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotSubs() []func() {
	out := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
