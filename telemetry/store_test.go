package telemetry

import (
	"testing"
	"time"
)

func pos(id string, lat, lng float64) AgentPosition {
	return AgentPosition{AgentID: id, Lat: lat, Lng: lng, ObservedAt: time.Unix(1700000000, 0)}
}

// TestStore_UpsertBulkLastWins verifies that entries apply in order and a
// later entry for the same agent overwrites an earlier one.
func TestStore_UpsertBulkLastWins(t *testing.T) {
	s := NewStore()
	s.UpsertBulk([]BulkEntry{
		{AgentID: "a", Position: pos("a", 1, 1)},
		{AgentID: "b", Position: pos("b", 2, 2)},
		{AgentID: "a", Position: pos("a", 3, 3)},
	})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	got, ok := s.Get("a")
	if !ok {
		t.Fatal("agent a missing")
	}
	if got.Lat != 3 || got.Lng != 3 {
		t.Errorf("agent a = (%v,%v), want (3,3)", got.Lat, got.Lng)
	}
}

// TestStore_UpsertBulkOverwritesUnconditionally documents that a bulk
// write never compares timestamps with stored state.
func TestStore_UpsertBulkOverwritesUnconditionally(t *testing.T) {
	s := NewStore()
	newer := pos("a", 1, 1)
	newer.ObservedAt = time.Unix(1700000100, 0)
	s.UpsertOne("a", newer)

	older := pos("a", 9, 9)
	older.ObservedAt = time.Unix(1700000000, 0)
	s.UpsertBulk([]BulkEntry{{AgentID: "a", Position: older}})

	got, _ := s.Get("a")
	if got.Lat != 9 {
		t.Errorf("stored lat = %v, want 9 (older batch must still overwrite)", got.Lat)
	}
}

// TestStore_BulkNotifiesOnce verifies subscribers see one notification
// per batch, not one per entry.
func TestStore_BulkNotifiesOnce(t *testing.T) {
	s := NewStore()
	calls := 0
	s.Subscribe(func() { calls++ })

	s.UpsertBulk([]BulkEntry{
		{AgentID: "a", Position: pos("a", 1, 1)},
		{AgentID: "b", Position: pos("b", 2, 2)},
		{AgentID: "c", Position: pos("c", 3, 3)},
	})
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}

	// An empty batch is a no-op and must not notify.
	s.UpsertBulk(nil)
	if calls != 1 {
		t.Errorf("notifications after empty batch = %d, want 1", calls)
	}
}

func TestStore_ResetClearsAndNotifies(t *testing.T) {
	s := NewStore()
	s.UpsertOne("a", pos("a", 1, 1))
	calls := 0
	s.Subscribe(func() { calls++ })

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len after reset = %d, want 0", s.Len())
	}
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0
	unsub := s.Subscribe(func() { calls++ })
	s.UpsertOne("a", pos("a", 1, 1))
	unsub()
	s.UpsertOne("a", pos("a", 2, 2))
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.UpsertOne("a", pos("a", 1, 1))
	snap := s.Snapshot()
	snap["a"] = pos("a", 99, 99)
	got, _ := s.Get("a")
	if got.Lat != 1 {
		t.Errorf("mutating snapshot leaked into store: lat = %v", got.Lat)
	}
}
