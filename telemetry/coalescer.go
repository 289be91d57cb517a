package telemetry

import (
	"sort"
	"sync"
	"time"
)

// FrameScheduler schedules a function to run on the next rendering
// frame. Schedule returns a cancel function; a cancelled callback must
// never fire. The contract keeps the one-flush-per-frame guarantee
// testable without a real display.
type FrameScheduler interface {
	Schedule(fn func()) (cancel func())
}

// Coalescer absorbs bursts of per-agent position events and applies at
// most one merged batch per rendering frame to the store. Within one
// coalescing window only the last position per agent survives.
type Coalescer struct {
	store     *Store
	scheduler FrameScheduler

	mu        sync.Mutex
	pending   map[string]AgentPosition
	cancel    func()
	scheduled bool
	stopped   bool
	flushes   uint64
	onFlush   func(batchSize int)
}

// NewCoalescer returns a coalescer feeding the given store.
func NewCoalescer(store *Store, scheduler FrameScheduler) *Coalescer {
	return &Coalescer{
		store:     store,
		scheduler: scheduler,
		pending:   map[string]AgentPosition{},
	}
}

// Enqueue records a position event, overwriting any pending position for
// the same agent, and schedules a flush if none is scheduled yet.
func (c *Coalescer) Enqueue(pos AgentPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending[pos.AgentID] = pos
	if !c.scheduled {
		c.scheduled = true
		c.cancel = c.scheduler.Schedule(c.flush)
	}
}

// flush drains pending into a single ordered batch and hands it to the
// store. Entries are sorted by agent id so flushes are deterministic.
// The batch is applied under the coalescer lock so a concurrent Stop
// cannot observe a drained-but-unapplied batch.
func (c *Coalescer) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.scheduled = false
	c.cancel = nil
	batch := make([]BulkEntry, 0, len(c.pending))
	for id, pos := range c.pending {
		batch = append(batch, BulkEntry{AgentID: id, Position: pos})
	}
	c.pending = map[string]AgentPosition{}
	c.flushes++
	sort.Slice(batch, func(i, j int) bool { return batch[i].AgentID < batch[j].AgentID })
	c.store.UpsertBulk(batch)
	if c.onFlush != nil {
		c.onFlush(len(batch))
	}
}

// OnFlush registers a callback observing each applied batch.
func (c *Coalescer) OnFlush(fn func(batchSize int)) {
	c.mu.Lock()
	c.onFlush = fn
	c.mu.Unlock()
}

// Stop cancels any scheduled flush and discards pending positions
// without applying them. Further Enqueue calls are ignored. Used on
// session end, where the store is reset instead.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.scheduled = false
	c.stopped = true
	c.pending = map[string]AgentPosition{}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Flushes reports how many batches have been applied.
func (c *Coalescer) Flushes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

// IntervalScheduler is the production FrameScheduler: callbacks fire one
// frame interval after being scheduled.
type IntervalScheduler struct {
	Interval time.Duration
}

// NewIntervalScheduler returns a scheduler pacing flushes at the given
// frame interval (16ms when zero, roughly 60 fps).
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &IntervalScheduler{Interval: interval}
}

// Schedule runs fn after one frame interval unless cancelled first.
func (s *IntervalScheduler) Schedule(fn func()) (cancel func()) {
	timer := time.AfterFunc(s.Interval, fn)
	return func() { timer.Stop() }
}
