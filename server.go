package fleetmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/dispatchlab/fleetmap/config"
	"github.com/dispatchlab/fleetmap/mapsync"
	"github.com/dispatchlab/fleetmap/render"
	"github.com/dispatchlab/fleetmap/telemetry"
)

var (
	server *http.Server
)

// Monitor exposes the live session over HTTP: health, the rendered
// feature set, and Prometheus metrics.
type Monitor struct {
	Session *Session
	Store   *telemetry.Store
	Widget  *render.Headless
	Metrics *Collector
}

func StartServer(m *Monitor) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", m.handleHealth)
	mux.HandleFunc("/api/features.json", m.handleFeatures)
	if m.Metrics != nil {
		mux.Handle("/metrics", m.Metrics.Handler())
	}

	addr := fmt.Sprintf(":%d", config.Config.Server.Port)
	server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)
}

// handleFeatures serves the point set currently pushed to the widget as
// a GeoJSON feature collection.
func (m *Monitor) handleFeatures(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	fc := m.Widget.SourceData(mapsync.SourceAgents)
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	_ = json.NewEncoder(w).Encode(fc)
}

func HandleGracefulShutdown(stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	if stop != nil {
		stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("server shutdown error: %v", err)
		} else {
			log.Printf("server shut down successfully")
		}
	}
}
