package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Per-client channel subscriptions: key = logical channel name.
	// Empty set means legacy mode: receive everything.
	subMu sync.RWMutex
	subs  map[string]bool
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel": channel,
			"data":    json.RawMessage(entry.Data),
			"ts":      entry.TS.Format(time.RFC3339Nano),
			"initial": true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: use NextWriter to batch queued messages
			// into a single WebSocket frame with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			// Drain any queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(8192) // SUBSCRIBE messages can carry long token lists
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		// Parse message type
		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "SUBSCRIBE":
			var subMsg SubscribeMsg
			if err := json.Unmarshal(msg, &subMsg); err != nil {
				SendError(c, "", "invalid SUBSCRIBE: "+err.Error())
				continue
			}
			go c.handleSubscribe(subMsg)

		case "UNSUBSCRIBE":
			var unsubMsg UnsubscribeMsg
			if err := json.Unmarshal(msg, &unsubMsg); err != nil {
				continue
			}
			c.handleUnsubscribe(unsubMsg)

		default:
			// Handle ping/pong (backward compat)
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

// handleSubscribe processes a SUBSCRIBE message from the client.
func (c *Client) handleSubscribe(msg SubscribeMsg) {
	if len(msg.Tokens) == 0 && len(msg.Indices) == 0 && len(msg.Segments) == 0 {
		SendError(c, msg.ReqID, "tokens, indices or segments required")
		return
	}

	channels := msg.Channels()

	c.subMu.Lock()
	for _, ch := range channels {
		c.subs[ch] = true
	}
	c.subMu.Unlock()

	log.Printf("[subscribe] client subscribed: tokens=%d indices=%d segments=%d",
		len(msg.Tokens), len(msg.Indices), len(msg.Segments))

	// Build and send snapshot from the latest-value keys
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := BuildSnapshotFromRedis(ctx, c.hub.Rdb, &msg)
	if err != nil {
		SendError(c, msg.ReqID, "snapshot build failed: "+err.Error())
		return
	}
	snap.ReqID = msg.ReqID

	SendJSON(c, snap)
	log.Printf("[subscribe] sent snapshot: quotes=%d indices=%d",
		len(snap.Quotes), len(snap.Indices))
}

// handleUnsubscribe removes subscriptions.
func (c *Client) handleUnsubscribe(msg UnsubscribeMsg) {
	sub := SubscribeMsg{Tokens: msg.Tokens, Indices: msg.Indices, Segments: msg.Segments}
	c.subMu.Lock()
	for _, ch := range sub.Channels() {
		delete(c.subs, ch)
	}
	c.subMu.Unlock()

	log.Printf("[subscribe] client unsubscribed: tokens=%d indices=%d",
		len(msg.Tokens), len(msg.Indices))
}

// matchesChannel checks if a PubSub channel matches this client's
// subscriptions. Returns true if the client should receive this message.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	if len(c.subs) == 0 {
		// No subscriptions — legacy mode, receive everything
		return true
	}
	if c.subs[channel] {
		return true
	}
	// Session channels are delivered to everyone subscribed to anything
	// in that segment: a halt matters to every instrument it covers.
	if strings.HasPrefix(channel, "pub:session:") {
		seg := strings.TrimPrefix(channel, "pub:session:")
		for ch := range c.subs {
			if strings.HasPrefix(ch, "pub:quote:"+seg+":") {
				return true
			}
		}
	}
	return false
}
