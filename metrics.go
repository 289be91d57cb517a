package fleetmap

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a live-map session.
type Collector struct {
	gatherer prometheus.Gatherer

	FramesTotal   *prometheus.CounterVec
	FramesDropped prometheus.Counter
	Flushes       prometheus.Counter
	TrackedAgents prometheus.Gauge
	LastEvent     prometheus.Gauge
}

// NewCollector registers the session metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetmap_stream_frames_total",
		Help: "Total stream frames received, labeled by envelope kind.",
	}, []string{"kind"})
	frames, err := registerCounterVec(reg, frames, "fleetmap_stream_frames_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetmap_stream_frames_dropped_total",
		Help: "Stream frames dropped as undecodable.",
	}), "fleetmap_stream_frames_dropped_total")
	if err != nil {
		return nil, err
	}

	flushes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetmap_coalescer_flushes_total",
		Help: "Coalesced position batches applied to the store.",
	}), "fleetmap_coalescer_flushes_total")
	if err != nil {
		return nil, err
	}

	tracked, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleetmap_tracked_agents",
		Help: "Agents currently holding a position in the store.",
	}), "fleetmap_tracked_agents")
	if err != nil {
		return nil, err
	}

	lastEvent, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleetmap_stream_last_event",
		Help: "Unix timestamp of the most recent stream event.",
	}), "fleetmap_stream_last_event")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		FramesTotal:   frames,
		FramesDropped: dropped,
		Flushes:       flushes,
		TrackedAgents: tracked,
		LastEvent:     lastEvent,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
