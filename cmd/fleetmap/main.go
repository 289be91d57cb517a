package main

import (
	"context"
	"flag"
	"time"

	lib "github.com/dispatchlab/fleetmap"
	"github.com/dispatchlab/fleetmap/config"
	"github.com/dispatchlab/fleetmap/mapsync"
	"github.com/dispatchlab/fleetmap/render"
	"github.com/dispatchlab/fleetmap/roster"
	"github.com/dispatchlab/fleetmap/selection"
	"github.com/dispatchlab/fleetmap/stream"
	"github.com/dispatchlab/fleetmap/telemetry"
)

func main() {
	streamURL := flag.String("stream", "", "websocket stream URL (overrides config)")
	rosterURL := flag.String("roster", "", "roster base URL (overrides config)")
	token := flag.String("token", "", "bearer token for the roster API")
	flag.Parse()

	lib.InitLogging()
	if err := config.LoadAppConfig(); err != nil {
		panic(err)
	}
	cfg := config.Config
	if *streamURL != "" {
		cfg.Stream.URL = *streamURL
	}
	if *rosterURL != "" {
		cfg.Roster.BaseURL = *rosterURL
	}

	store := telemetry.NewStore()
	scheduler := telemetry.NewIntervalScheduler(time.Duration(cfg.Map.FrameIntervalMS) * time.Millisecond)
	coalescer := telemetry.NewCoalescer(store, scheduler)
	rosterCache := roster.NewCache(cfg.Roster.BaseURL, *token)
	sel := selection.NewStore()

	metrics, err := lib.NewCollector(nil)
	if err != nil {
		panic(err)
	}

	session := lib.NewSession(
		stream.NewClient(cfg.Stream.URL, stream.Options{
			Reconnect:  cfg.Stream.Reconnect,
			MaxBackoff: time.Duration(cfg.Stream.MaxBackoffMS) * time.Millisecond,
			OnDrop:     func(error) { metrics.FramesDropped.Inc() },
		}),
		store, coalescer, rosterCache,
		time.Duration(cfg.Roster.RefreshIntervalMS)*time.Millisecond,
		metrics,
	)

	engine := mapsync.NewEngine(mapsync.Options{
		Center:             mapsync.LngLat{Lng: cfg.Map.CenterLng, Lat: cfg.Map.CenterLat},
		Zoom:               cfg.Map.Zoom,
		ClusterRadius:      cfg.Map.ClusterRadius,
		ClusterMaxZoom:     cfg.Map.ClusterMaxZoom,
		SelectionZoomFloor: cfg.Map.SelectionZoomFloor,
		FitPadding:         cfg.Map.FitPadding,
		FitMaxZoom:         cfg.Map.FitMaxZoom,
	}, store, rosterCache, sel)

	widget := render.NewHeadless()
	if err := engine.Mount(widget); err != nil {
		panic(err)
	}

	if err := session.Start(context.Background()); err != nil {
		panic(err)
	}

	lib.StartServer(&lib.Monitor{
		Session: session,
		Store:   store,
		Widget:  widget,
		Metrics: metrics,
	})
	lib.HandleGracefulShutdown(func() {
		session.Stop()
		engine.Unmount()
	})
}
