package wolf

import (
	"encoding/json"
	"time"
)

// readLoop drains inbound frames until the connection dies: reply frames
// are routed to their waiting requester by sequence number, chat-message
// frames are dispatched to subscribed handlers.
func (c *Client) readLoop() {
	defer close(c.readDone)

	for {
		c.mu.Lock()
		conn := c.conn
		alive := c.connected
		c.mu.Unlock()
		if !alive || conn == nil {
			return
		}

		var p packet
		if err := conn.ReadJSON(&p); err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.connected = false
			c.mu.Unlock()
			if !wasClosed {
				c.logger.Warn("read loop terminated", "error", err)
			}
			return
		}

		if p.Seq != 0 {
			if ch, ok := c.pending.Load(p.Seq); ok {
				select {
				case ch.(chan *packet) <- &p:
				default:
				}
			}
			continue
		}

		if p.Command == cmdMessageSend {
			c.handleInbound(p.Body)
		}
	}
}

func (c *Client) handleInbound(body json.RawMessage) {
	var wm wireMessage
	if err := json.Unmarshal(body, &wm); err != nil {
		c.logger.Debug("discarding undecodable message frame", "error", err)
		return
	}

	msg := Message{
		Ref: MessageRef{
			GroupID:   wm.RecipientID,
			Timestamp: wm.Timestamp,
			IsGroup:   wm.IsGroup,
		},
		UserID:  wm.OriginatorID,
		Content: wm.Data,
		IsGroup: wm.IsGroup,
		Arrival: time.Now(),
	}
	if wm.IsGroup {
		msg.GroupID = wm.RecipientID
	}

	c.dispatch(msg)
}
