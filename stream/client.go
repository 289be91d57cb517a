package stream

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Options controls connection behavior.
type Options struct {
	// Reconnect enables redialing with exponential backoff after a read
	// error or failed dial. When false the connection is single-shot and
	// the read loop ends on the first error.
	Reconnect bool
	// MaxBackoff caps the redial delay. Zero means 60s.
	MaxBackoff time.Duration
	// DialTimeout bounds each dial attempt. Zero means 10s.
	DialTimeout time.Duration
	// OnDrop, when set, is called for every frame dropped as undecodable.
	OnDrop func(error)
}

// Client dials the telemetry stream endpoint.
type Client struct {
	url  string
	opts Options
}

// NewClient returns a client for the given ws:// or wss:// endpoint.
func NewClient(url string, opts Options) *Client {
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 60 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Client{url: url, opts: opts}
}

// Conn is a live stream connection. Close is idempotent.
type Conn struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}

	mu sync.Mutex
	ws *websocket.Conn
}

// Connect opens the stream and delivers decoded events to handler from a
// background goroutine until Close is called or, without reconnection,
// until the first read error. The initial dial failure is returned
// directly unless reconnection is enabled.
func (c *Client) Connect(ctx context.Context, handler Handler) (*Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	conn := &Conn{cancel: cancel, done: make(chan struct{})}

	ws, err := c.dial(ctx)
	if err != nil {
		if !c.opts.Reconnect {
			cancel()
			close(conn.done)
			return nil, err
		}
		log.Printf("[stream] dial %s: %v (will retry)", c.url, err)
	}
	conn.setWS(ws)

	go c.run(ctx, conn, handler)
	return conn, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	ws, _, err := websocket.DefaultDialer.DialContext(dctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	log.Printf("[stream] connected to %s", c.url)
	return ws, nil
}

func (c *Client) run(ctx context.Context, conn *Conn, handler Handler) {
	defer close(conn.done)
	backoff := time.Second
	ws := conn.current()
	for {
		if ws == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter(backoff)):
			}
			backoff *= 2
			if backoff > c.opts.MaxBackoff {
				backoff = c.opts.MaxBackoff
			}
			redialed, err := c.dial(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[stream] redial %s: %v", c.url, err)
				continue
			}
			ws = redialed
			conn.setWS(ws)
			backoff = time.Second
		}

		c.readLoop(ctx, ws, handler)
		conn.setWS(nil)
		_ = ws.Close()
		ws = nil
		if ctx.Err() != nil || !c.opts.Reconnect {
			return
		}
		log.Printf("[stream] connection lost, reconnecting")
	}
}

// readLoop consumes frames until a read error. Frames that fail to decode
// are dropped with a warning; the connection stays open.
func (c *Client) readLoop(ctx context.Context, ws *websocket.Conn, handler Handler) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[stream] read: %v", err)
			}
			return
		}
		ev, err := decodeEvent(raw)
		if err != nil {
			log.Printf("[stream] warn: dropping frame: %v", err)
			if c.opts.OnDrop != nil {
				c.opts.OnDrop(err)
			}
			continue
		}
		handler(ev)
	}
}

// Close releases the transport and stops event delivery. Safe to call
// more than once.
func (conn *Conn) Close() error {
	conn.closeOnce.Do(func() {
		conn.cancel()
		if ws := conn.current(); ws != nil {
			_ = ws.Close()
		}
	})
	return nil
}

// Done is closed once the connection's read loop has fully stopped.
func (conn *Conn) Done() <-chan struct{} { return conn.done }

func (conn *Conn) setWS(ws *websocket.Conn) {
	conn.mu.Lock()
	conn.ws = ws
	conn.mu.Unlock()
}

func (conn *Conn) current() *websocket.Conn {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.ws
}

// jitter spreads redial attempts to avoid thundering herds after an
// endpoint restart.
func jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
}
