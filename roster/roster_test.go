package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type rosterServer struct {
	mu    sync.Mutex
	body  string
	code  int
	token string
	hits  int
}

func (rs *rosterServer) handler(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	rs.hits++
	body, code, token := rs.body, rs.code, rs.token
	rs.mu.Unlock()
	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if code != 0 && code != http.StatusOK {
		http.Error(w, "boom", code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (rs *rosterServer) set(body string, code int) {
	rs.mu.Lock()
	rs.body, rs.code = body, code
	rs.mu.Unlock()
}

func TestCache_RefreshReplacesWholesale(t *testing.T) {
	rs := &rosterServer{body: `{"items":[
		{"id":"drv-001","name":"Ava Chen","status":"delivering","vehicle":"van-12"},
		{"id":"drv-002","name":"Noah Singh","status":"paused"}
	]}`}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	c := NewCache(srv.URL, "")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(c.Snapshot()); got != 2 {
		t.Fatalf("snapshot size = %d, want 2", got)
	}
	e, ok := c.Get("drv-001")
	if !ok || e.Name != "Ava Chen" || e.Status != StatusDelivering || e.Vehicle != "van-12" {
		t.Errorf("drv-001 = %+v, ok=%v", e, ok)
	}

	// drv-002 vanishes from the next response and must vanish here too.
	rs.set(`{"items":[{"id":"drv-001","name":"Ava Chen","status":"idle"}]}`, 0)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if _, ok := c.Get("drv-002"); ok {
		t.Error("drv-002 survived a wholesale replace")
	}
	e, _ = c.Get("drv-001")
	if e.Status != StatusIdle {
		t.Errorf("drv-001 status = %q, want idle", e.Status)
	}
}

func TestCache_SendsBearerToken(t *testing.T) {
	rs := &rosterServer{body: `{"items":[]}`, token: "secret"}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	unauthed := NewCache(srv.URL, "")
	if err := unauthed.Refresh(context.Background()); err == nil {
		t.Error("refresh without token succeeded, want HTTP 401 error")
	}

	authed := NewCache(srv.URL, "secret")
	if err := authed.Refresh(context.Background()); err != nil {
		t.Errorf("refresh with token: %v", err)
	}
}

// TestCache_FailedRefreshKeepsSnapshot verifies staleness tolerance: a
// broken poll keeps serving the last good roster.
func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	rs := &rosterServer{body: `{"items":[{"id":"drv-001","name":"Ava Chen","status":"delivering"}]}`}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	c := NewCache(srv.URL, "")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rs.set("", http.StatusInternalServerError)
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("refresh against 500 succeeded")
	}
	if _, ok := c.Get("drv-001"); !ok {
		t.Error("failed refresh wiped the previous snapshot")
	}
}

func TestCache_NotifiesOnSuccessOnly(t *testing.T) {
	rs := &rosterServer{body: `{"items":[]}`}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	c := NewCache(srv.URL, "")
	calls := 0
	unsub := c.Subscribe(func() { calls++ })

	_ = c.Refresh(context.Background())
	rs.set("", http.StatusInternalServerError)
	_ = c.Refresh(context.Background())
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}

	unsub()
	rs.set(`{"items":[]}`, 0)
	_ = c.Refresh(context.Background())
	if calls != 1 {
		t.Errorf("notifications after unsubscribe = %d, want 1", calls)
	}
}

// TestCache_SkipsEntriesWithoutID guards against a roster payload that
// would otherwise collapse onto the empty-string key.
func TestCache_SkipsEntriesWithoutID(t *testing.T) {
	rs := &rosterServer{body: `{"items":[{"name":"Ghost","status":"idle"},{"id":"drv-001","name":"Ava Chen","status":"idle"}]}`}
	srv := httptest.NewServer(http.HandlerFunc(rs.handler))
	defer srv.Close()

	c := NewCache(srv.URL, "")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(c.Snapshot()); got != 1 {
		t.Errorf("snapshot size = %d, want 1", got)
	}
}
