package telemetry

import (
	"sync"
	"time"
)

// AgentPosition is the latest known position of one agent.
type AgentPosition struct {
	AgentID    string
	Lat        float64
	Lng        float64
	ObservedAt time.Time
}

// BulkEntry pairs an agent id with its position inside one coalesced batch.
type BulkEntry struct {
	AgentID  string
	Position AgentPosition
}

// Store maps agent ids to their latest observed position. It holds at
// most one entry per agent; absence means no position has been observed
// since the last reset. Subscribers are notified after every mutation,
// never in the middle of one, so a bulk upsert is atomic from their
// point of view.
type Store struct {
	mu        sync.Mutex
	positions map[string]AgentPosition
	subs      map[int]func()
	nextSub   int
}

// NewStore returns an empty position store.
func NewStore() *Store {
	return &Store{
		positions: map[string]AgentPosition{},
		subs:      map[int]func(){},
	}
}

// UpsertOne stores or replaces the position for one agent.
func (s *Store) UpsertOne(agentID string, pos AgentPosition) {
	s.mu.Lock()
	pos.AgentID = agentID
	s.positions[agentID] = pos
	subs := s.snapshotSubs()
	s.mu.Unlock()
	notify(subs)
}

// UpsertBulk applies entries in order; later entries for the same id win.
// The write is unconditional: no comparison is made against the
// ObservedAt of already-stored data, so an out-of-order batch overwrites
// newer state. Subscribers see the batch as a single change.
func (s *Store) UpsertBulk(entries []BulkEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	for _, e := range entries {
		p := e.Position
		p.AgentID = e.AgentID
		s.positions[e.AgentID] = p
	}
	subs := s.snapshotSubs()
	s.mu.Unlock()
	notify(subs)
}

// Reset clears all entries. Used on session end.
func (s *Store) Reset() {
	s.mu.Lock()
	s.positions = map[string]AgentPosition{}
	subs := s.snapshotSubs()
	s.mu.Unlock()
	notify(subs)
}

// Get returns the stored position for one agent.
func (s *Store) Get(agentID string) (AgentPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[agentID]
	return p, ok
}

// Snapshot returns a copy of all stored positions.
func (s *Store) Snapshot() map[string]AgentPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AgentPosition, len(s.positions))
	for id, p := range s.positions {
		out[id] = p
	}
	return out
}

// Len returns the number of tracked agents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

// Subscribe registers fn to run after every mutation and returns an
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

// snapshotSubs must be called with mu held.
func (s *Store) snapshotSubs() []func() {
	out := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func()) {
	for _, fn := range subs {
		fn()
	}
}
