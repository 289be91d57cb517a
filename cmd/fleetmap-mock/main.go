// Command fleetmap-mock is a self-contained development backend: a REST
// surface for auth, drivers and deliveries plus a websocket feed that
// random-walks every driver and broadcasts gps frames on a tick.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const jitterDeg = 0.001

type driver struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Vehicle string  `json:"vehicle,omitempty"`
	Lat     float64 `json:"-"`
	Lng     float64 `json:"-"`
}

type delivery struct {
	ID       string `json:"id"`
	DriverID string `json:"driverId"`
	Address  string `json:"address"`
	Status   string `json:"status"`
}

type envelope struct {
	V    int         `json:"v"`
	Type string      `json:"type"`
	TS   string      `json:"ts"`
	Data interface{} `json:"data"`
}

type backend struct {
	mu         sync.Mutex
	drivers    []*driver
	deliveries []*delivery
	tokens     map[string]bool
	conns      map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

func newBackend() *backend {
	b := &backend{
		tokens: map[string]bool{},
		conns:  map[*websocket.Conn]bool{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	names := []string{"Ava Chen", "Noah Singh", "Mia Petrov", "Leo Tanaka", "Zoe Okafor", "Eli Moreau"}
	statuses := []string{"delivering", "paused", "idle", "alarm"}
	vehicles := []string{"van-12", "bike-3", "van-7", "", "truck-2", "bike-9"}
	for i, name := range names {
		b.drivers = append(b.drivers, &driver{
			ID:      fmt.Sprintf("drv-%03d", i+1),
			Name:    name,
			Status:  statuses[i%len(statuses)],
			Vehicle: vehicles[i],
			Lat:     49.2827 + (rand.Float64()-0.5)*0.1,
			Lng:     -123.1207 + (rand.Float64()-0.5)*0.1,
		})
	}
	for i, d := range b.drivers {
		b.deliveries = append(b.deliveries, &delivery{
			ID:       uuid.NewString(),
			DriverID: d.ID,
			Address:  fmt.Sprintf("%d Main St", 100+i*37),
			Status:   "assigned",
		})
	}
	return b
}

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := uuid.NewString()
	b.mu.Lock()
	b.tokens[token] = true
	b.mu.Unlock()
	writeJSON(w, map[string]string{"token": token})
}

func (b *backend) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || token == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens[token]
}

func (b *backend) handleDrivers(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	b.mu.Lock()
	items := make([]driver, 0, len(b.drivers))
	for _, d := range b.drivers {
		items = append(items, *d)
	}
	b.mu.Unlock()
	writeJSON(w, map[string]interface{}{"items": items})
}

func (b *backend) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		items := make([]delivery, 0, len(b.deliveries))
		for _, d := range b.deliveries {
			items = append(items, *d)
		}
		b.mu.Unlock()
		writeJSON(w, map[string]interface{}{"items": items})
	case http.MethodPost:
		var req struct {
			DriverID string `json:"driverId"`
			Address  string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		d := &delivery{ID: uuid.NewString(), DriverID: req.DriverID, Address: req.Address, Status: "assigned"}
		b.mu.Lock()
		b.deliveries = append(b.deliveries, d)
		b.mu.Unlock()
		writeJSON(w, d)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDriverAction serves POST /api/drivers/{id}/{action} for pause
// and resume, flipping the driver's reported status.
func (b *backend) handleDriverAction(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/drivers/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	id, action := parts[0], parts[1]

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.drivers {
		if d.ID != id {
			continue
		}
		switch action {
		case "pause":
			d.Status = "paused"
		case "resume":
			d.Status = "delivering"
		default:
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, d)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// handleDeliveryAction serves POST /api/deliveries/{id}/{action} for
// reassign and complete.
func (b *backend) handleDeliveryAction(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/deliveries/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	id, action := parts[0], parts[1]

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.deliveries {
		if d.ID != id {
			continue
		}
		switch action {
		case "complete":
			d.Status = "completed"
		case "reassign":
			var req struct {
				DriverID string `json:"driverId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DriverID == "" {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			d.DriverID = req.DriverID
		default:
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, d)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (b *backend) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade: %v", err)
		return
	}
	// Greet before registering for broadcasts so the hello frame cannot
	// interleave with a concurrent gps tick on the same connection.
	greeting := envelope{V: 1, Type: "hello", TS: time.Now().UTC().Format(time.RFC3339), Data: map[string]string{"msg": "mock feed online"}}
	if err := conn.WriteJSON(greeting); err != nil {
		_ = conn.Close()
		return
	}
	b.mu.Lock()
	b.conns[conn] = true
	b.mu.Unlock()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.dropConn(conn)
				return
			}
		}
	}()
}

func (b *backend) dropConn(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	_ = conn.Close()
}

// tick random-walks every driver and broadcasts one gps frame each.
func (b *backend) tick() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	frames := make([]envelope, 0, len(b.drivers))
	ts := time.Now().UTC().Format(time.RFC3339)
	for _, d := range b.drivers {
		d.Lat += (rand.Float64()*2 - 1) * jitterDeg
		d.Lng += (rand.Float64()*2 - 1) * jitterDeg
		frames = append(frames, envelope{V: 1, Type: "gps", TS: ts, Data: map[string]interface{}{
			"driverId": d.ID,
			"lat":      d.Lat,
			"lng":      d.Lng,
		}})
	}
	b.mu.Unlock()

	for _, c := range conns {
		for _, f := range frames {
			if err := c.WriteJSON(f); err != nil {
				b.dropConn(c)
				break
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	interval := flag.Duration("interval", 2*time.Second, "gps broadcast interval")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	b := newBackend()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", b.handleLogin)
	mux.HandleFunc("/api/drivers", b.handleDrivers)
	mux.HandleFunc("/api/drivers/", b.handleDriverAction)
	mux.HandleFunc("/api/deliveries", b.handleDeliveries)
	mux.HandleFunc("/api/deliveries/", b.handleDeliveryAction)
	mux.HandleFunc("/ws", b.handleWS)

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			b.tick()
		}
	}()

	log.Printf("mock backend listening on %s", *addr)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
