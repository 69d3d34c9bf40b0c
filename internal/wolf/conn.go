package wolf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Errors surfaced by the transport layer.
var (
	ErrNotConnected = errors.New("wolf: not connected")
	ErrReplyTimeout = errors.New("wolf: timed out waiting for reply")
	ErrLoginFailed  = errors.New("wolf: login rejected")
)

func (c *Client) dial(ctx context.Context) error {
	timeout := c.cfg.DialTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("wolf: dial %s: %w", c.cfg.ServerURL, err)
	}
	conn.SetReadLimit(1 << 20)

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Debug("connected", "url", c.cfg.ServerURL)
	return nil
}

// writePacket marshals and writes one frame. Writes are serialized; the
// gorilla connection allows only a single concurrent writer.
func (c *Client) writePacket(p *packet) error {
	c.mu.Lock()
	conn := c.conn
	alive := c.connected
	c.mu.Unlock()

	if !alive || conn == nil {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteJSON(p); err != nil {
		return fmt.Errorf("wolf: write %q: %w", p.Command, err)
	}
	return nil
}

// request sends a command and waits for its reply frame.
func (c *Client) request(ctx context.Context, command string, body any) (*replyBody, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("wolf: marshal %q body: %w", command, err)
	}

	seq := c.nextSeq()
	ch := c.awaitReply(seq)

	if err := c.writePacket(&packet{Command: command, Seq: seq, Body: raw}); err != nil {
		c.pending.Delete(seq)
		return nil, err
	}

	p, err := c.waitReply(ctx, seq, ch)
	if err != nil {
		return nil, fmt.Errorf("wolf: %q: %w", command, err)
	}

	var reply replyBody
	if len(p.Body) > 0 {
		if err := json.Unmarshal(p.Body, &reply); err != nil {
			return nil, fmt.Errorf("wolf: decode %q reply: %w", command, err)
		}
	}
	return &reply, nil
}

// emit sends a command without waiting for a reply.
func (c *Client) emit(command string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("wolf: marshal %q body: %w", command, err)
	}
	return c.writePacket(&packet{Command: command, Body: raw})
}

func (c *Client) pingLoop() {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 25 * time.Second
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.pingStop:
			return
		case <-t.C:
			c.mu.Lock()
			conn := c.conn
			alive := c.connected
			c.mu.Unlock()
			if !alive || conn == nil {
				return
			}

			c.wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.wmu.Unlock()
			if err != nil {
				c.logger.Warn("ping failed", "error", err)
			}
		}
	}
}

// Close sends a best-effort logout packet, then tears down the
// connection. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	// Graceful logout first; failures here never block teardown.
	if err := c.emit(cmdLogout, nil); err == nil {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
		}
	}

	close(c.pingStop)

	c.mu.Lock()
	c.connected = false
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
		if err := conn.Close(); err != nil {
			return fmt.Errorf("wolf: close: %w", err)
		}
	}
	return nil
}
