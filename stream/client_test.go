package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer is a one-connection websocket endpoint that sends the frames
// it is given and then idles until closed.
func wsServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// TestClient_DeliversEventsAndDropsMalformed runs a connection against a
// feed mixing good and broken frames: good ones reach the handler in
// order, broken ones hit the drop hook without killing the connection.
func TestClient_DeliversEventsAndDropsMalformed(t *testing.T) {
	srv := wsServer(t, []string{
		`{"v":1,"type":"hello","ts":"2026-08-30T12:00:00Z","data":{"msg":"hi"}}`,
		`not even json`,
		`{"v":1,"type":"gps","ts":"2026-08-30T12:00:01Z","data":{"driverId":"drv-001","lat":49.0,"lng":-123.0}}`,
	})
	defer srv.Close()

	var mu sync.Mutex
	var kinds []string
	drops := 0

	client := NewClient(wsURL(srv), Options{
		OnDrop: func(error) { mu.Lock(); drops++; mu.Unlock() },
	})
	conn, err := client.Connect(context.Background(), func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 2 && drops == 1
	}, "two events and one drop")

	mu.Lock()
	defer mu.Unlock()
	if kinds[0] != KindHello || kinds[1] != KindGPS {
		t.Errorf("kinds = %v, want [hello gps]", kinds)
	}
}

func TestClient_InitialDialErrorWithoutReconnect(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1/ws", Options{DialTimeout: 200 * time.Millisecond})
	if _, err := client.Connect(context.Background(), func(Event) {}); err == nil {
		t.Fatal("connect succeeded against a closed port")
	}
}

// TestConn_CloseIsIdempotent verifies double-close is safe and that the
// read loop fully stops.
func TestConn_CloseIsIdempotent(t *testing.T) {
	srv := wsServer(t, nil)
	defer srv.Close()

	client := NewClient(wsURL(srv), Options{})
	conn, err := client.Connect(context.Background(), func(Event) {})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	select {
	case <-conn.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("read loop did not stop after close")
	}
}

// TestClient_NoEventsAfterClose verifies the teardown contract: once
// Close returns and Done is signalled, the handler stays silent.
func TestClient_NoEventsAfterClose(t *testing.T) {
	srv := wsServer(t, []string{
		`{"v":1,"type":"gps","ts":"2026-08-30T12:00:00Z","data":{"driverId":"drv-001","lat":1,"lng":2}}`,
	})
	defer srv.Close()

	var mu sync.Mutex
	events := 0
	client := NewClient(wsURL(srv), Options{})
	conn, err := client.Connect(context.Background(), func(Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return events == 1 }, "first event")

	_ = conn.Close()
	<-conn.Done()
	mu.Lock()
	final := events
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if events != final {
		t.Errorf("handler fired after close: %d -> %d", final, events)
	}
}
