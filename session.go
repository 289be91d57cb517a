package fleetmap

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dispatchlab/fleetmap/roster"
	"github.com/dispatchlab/fleetmap/stream"
	"github.com/dispatchlab/fleetmap/telemetry"
)

const diagRingSize = 5

// Session ties one stream connection to the position pipeline and the
// roster poller. It owns the teardown order: a closing session must
// never leave coalesced-but-unapplied positions behind, so the coalescer
// stops first, then the store resets, then the transport closes.
type Session struct {
	client    *stream.Client
	store     *telemetry.Store
	coalescer *telemetry.Coalescer
	roster    *roster.Cache
	interval  time.Duration
	metrics   *Collector

	mu        sync.Mutex
	conn      *stream.Conn
	cancel    context.CancelFunc
	started   bool
	lastEvent time.Time
	diag      []string
}

// NewSession wires a session over its collaborators. metrics may be nil.
func NewSession(client *stream.Client, store *telemetry.Store, co *telemetry.Coalescer, rc *roster.Cache, rosterInterval time.Duration, metrics *Collector) *Session {
	return &Session{
		client:    client,
		store:     store,
		coalescer: co,
		roster:    rc,
		interval:  rosterInterval,
		metrics:   metrics,
	}
}

// Start connects the stream and launches the roster poller. It returns
// the initial dial error; with reconnection enabled the session starts
// regardless and keeps retrying in the background.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)

	conn, err := s.client.Connect(ctx, s.handleEvent)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	if s.metrics != nil {
		s.store.Subscribe(func() {
			s.metrics.TrackedAgents.Set(float64(s.store.Len()))
		})
		s.coalescer.OnFlush(func(int) { s.metrics.Flushes.Inc() })
	}

	go s.roster.Run(ctx, s.interval)
	return nil
}

// Stop tears the session down: pending coalesced positions are discarded
// rather than applied, the store is emptied, and only then does the
// transport close.
func (s *Session) Stop() {
	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return
	}

	s.coalescer.Stop()
	s.store.Reset()
	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	log.Printf("[session] stopped")
}

func (s *Session) handleEvent(ev stream.Event) {
	s.mu.Lock()
	s.lastEvent = ev.SentAt
	s.diag = append(s.diag, fmt.Sprintf("%s %s", ev.SentAt.Format(time.RFC3339), ev.Kind))
	if len(s.diag) > diagRingSize {
		s.diag = s.diag[len(s.diag)-diagRingSize:]
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FramesTotal.WithLabelValues(ev.Kind).Inc()
		s.metrics.LastEvent.Set(float64(ev.SentAt.Unix()))
	}

	switch ev.Kind {
	case stream.KindHello:
		log.Printf("[session] stream hello: %s", ev.Hello.Msg)
	case stream.KindGPS:
		s.coalescer.Enqueue(telemetry.AgentPosition{
			AgentID:    ev.GPS.DriverID,
			Lat:        ev.GPS.Lat,
			Lng:        ev.GPS.Lng,
			ObservedAt: ev.SentAt,
		})
	default:
		log.Printf("[session] ignoring frame kind %q", ev.Kind)
	}
}

// OnFrameDropped feeds the drop counter; wire it into stream.Options.
func (s *Session) OnFrameDropped(err error) {
	if s.metrics != nil {
		s.metrics.FramesDropped.Inc()
	}
}

// Recent returns the last few stream events, newest last. Useful for
// eyeballing liveness without scraping metrics.
func (s *Session) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.diag...)
}

// LastEventAt returns the send time of the most recent stream event.
func (s *Session) LastEventAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}
