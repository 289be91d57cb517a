package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Status is a driver's reported machine status.
type Status string

const (
	StatusDelivering Status = "delivering"
	StatusPaused     Status = "paused"
	StatusIdle       Status = "idle"
	StatusAlarm      Status = "alarm"
)

// Entry is one driver's display metadata, keyed by the same agent id as
// the position stream.
type Entry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Vehicle string `json:"vehicle,omitempty"`
}

type listResponse struct {
	Items []Entry `json:"items"`
}

// Cache fetches and holds the driver roster. A failed refresh keeps the
// previous snapshot; consumers tolerate lag.
type Cache struct {
	baseURL string
	token   string
	client  *http.Client

	mu      sync.Mutex
	entries map[string]Entry
	subs    map[int]func()
	nextSub int
}

// NewCache returns an empty roster cache fetching from baseURL with the
// given bearer token.
func NewCache(baseURL, token string) *Cache {
	return &Cache{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		entries: map[string]Entry{},
		subs:    map[int]func(){},
	}
}

// Refresh fetches the roster and replaces the snapshot wholesale,
// notifying subscribers on success.
func (c *Cache) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/drivers", nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("roster fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roster fetch: HTTP %d", resp.StatusCode)
	}
	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("roster decode: %w", err)
	}

	next := make(map[string]Entry, len(list.Items))
	for _, e := range list.Items {
		if e.ID == "" {
			continue
		}
		next[e.ID] = e
	}
	c.mu.Lock()
	c.entries = next
	subs := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return nil
}

// Run refreshes immediately and then on every tick until ctx ends.
// Errors are logged; the cache keeps serving the last good snapshot.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if err := c.Refresh(ctx); err != nil {
		log.Printf("[roster] warn: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Printf("[roster] warn: %v", err)
			}
		}
	}
}

// Get returns the cached entry for one agent, if any.
func (c *Cache) Get(agentID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[agentID]
	return e, ok
}

// Snapshot returns a copy of the cached roster.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for id, e := range c.entries {
		out[id] = e
	}
	return out
}

// Subscribe registers fn to run after every successful refresh and
// returns an unsubscribe function.
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
