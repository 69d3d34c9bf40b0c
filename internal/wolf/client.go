// Package wolf implements the WOLF live-chat service client used as the
// transport for bot instances: login, group join, message send/delete,
// and inbound message subscriptions over a websocket connection.
package wolf

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msaud/wolfherd/internal/config"
)

// Client is a single authenticated session against the WOLF service.
// It implements Transport.
type Client struct {
	cfg    config.WolfConfig
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	userID    string

	wmu sync.Mutex // serializes websocket writes

	seq     atomic.Uint32
	pending sync.Map // seq -> chan *packet

	hmu          sync.Mutex
	nextHandler  int
	groupSubs    map[int]MessageHandler
	privateSubs  map[int]MessageHandler

	readDone chan struct{}
	pingStop chan struct{}
}

// NewClient dials the configured server and returns a connected but
// unauthenticated client.
func NewClient(ctx context.Context, cfg config.WolfConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:         cfg,
		logger:      logger.With("component", "wolf_client"),
		groupSubs:   make(map[int]MessageHandler),
		privateSubs: make(map[int]MessageHandler),
		readDone:    make(chan struct{}),
		pingStop:    make(chan struct{}),
	}

	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// NewDialer returns a Dialer producing independent clients, one per bot
// instance.
func NewDialer(cfg config.WolfConfig, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return NewClient(ctx, cfg, logger)
	}
}

// IsConnected reports whether the websocket connection is alive.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CurrentUserID returns the logged-in subscriber id, or "" before login.
func (c *Client) CurrentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// OnGroupMessage registers a handler for inbound group messages.
func (c *Client) OnGroupMessage(fn MessageHandler) func() {
	return c.subscribe(c.groupSubs, fn)
}

// OnPrivateMessage registers a handler for inbound private messages.
func (c *Client) OnPrivateMessage(fn MessageHandler) func() {
	return c.subscribe(c.privateSubs, fn)
}

func (c *Client) subscribe(m map[int]MessageHandler, fn MessageHandler) func() {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	id := c.nextHandler
	c.nextHandler++
	m[id] = fn

	return func() {
		c.hmu.Lock()
		defer c.hmu.Unlock()
		delete(m, id)
	}
}

// dispatch fans an inbound message out to the matching handler set.
// Handlers run on a fresh goroutine so a slow consumer cannot stall the
// read loop.
func (c *Client) dispatch(msg Message) {
	c.hmu.Lock()
	var handlers []MessageHandler
	src := c.privateSubs
	if msg.IsGroup {
		src = c.groupSubs
	}
	for _, fn := range src {
		handlers = append(handlers, fn)
	}
	c.hmu.Unlock()

	for _, fn := range handlers {
		go func(h MessageHandler) {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("message handler panicked", "panic", r)
				}
			}()
			h(msg)
		}(fn)
	}
}

func (c *Client) nextSeq() uint32 {
	return c.seq.Add(1)
}

// awaitReply registers a reply channel for seq before the request is
// written, avoiding a race with a fast reply.
func (c *Client) awaitReply(seq uint32) chan *packet {
	ch := make(chan *packet, 1)
	c.pending.Store(seq, ch)
	return ch
}

func (c *Client) waitReply(ctx context.Context, seq uint32, ch chan *packet) (*packet, error) {
	defer c.pending.Delete(seq)

	timeout := c.cfg.ReplyTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		return nil, ErrReplyTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
