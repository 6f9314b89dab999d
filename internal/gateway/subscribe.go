package gateway

import (
	"context"
	"encoding/json"
	"log"

	goredis "github.com/go-redis/redis/v8"
)

// ── WS Protocol Message Types ──

// SubscribeMsg is the client → server SUBSCRIBE request.
type SubscribeMsg struct {
	Type     string   `json:"type"`     // "SUBSCRIBE"
	ReqID    string   `json:"reqId"`    // client-generated request ID
	Tokens   []string `json:"tokens"`   // e.g. ["NSEFO:49543"]
	Indices  []string `json:"indices"`  // e.g. ["NIFTY 50"]
	Segments []string `json:"segments"` // session-state channels, e.g. ["NSEFO"]
}

// UnsubscribeMsg is the client → server UNSUBSCRIBE request.
type UnsubscribeMsg struct {
	Type     string   `json:"type"` // "UNSUBSCRIBE"
	ReqID    string   `json:"reqId"`
	Tokens   []string `json:"tokens"`
	Indices  []string `json:"indices"`
	Segments []string `json:"segments"`
}

// SnapshotResponse is the server → client SNAPSHOT with the latest
// published state for every requested instrument.
type SnapshotResponse struct {
	Type    string                     `json:"type"` // "SNAPSHOT"
	ReqID   string                     `json:"reqId"`
	Quotes  map[string]json.RawMessage `json:"quotes"`  // key "NSEFO:49543"
	Indices map[string]json.RawMessage `json:"indices"` // key "NIFTY 50"
}

// ErrorResponse is the server → client ERROR message.
type ErrorResponse struct {
	Type  string `json:"type"` // "ERROR"
	ReqID string `json:"reqId,omitempty"`
	Error string `json:"error"`
}

// Channels expands the request into logical channel names.
func (m *SubscribeMsg) Channels() []string {
	channels := make([]string, 0, len(m.Tokens)+len(m.Indices)+len(m.Segments))
	for _, tok := range m.Tokens {
		channels = append(channels, "pub:quote:"+tok)
	}
	for _, name := range m.Indices {
		channels = append(channels, "pub:index:"+name)
	}
	for _, seg := range m.Segments {
		channels = append(channels, "pub:session:"+seg)
	}
	return channels
}

// ── Redis Snapshot Fetching ──

// BuildSnapshotFromRedis reads the latest-value keys for every requested
// instrument in one MGET roundtrip. Instruments with no published update
// yet are omitted from the snapshot.
func BuildSnapshotFromRedis(ctx context.Context, rdb *goredis.Client, msg *SubscribeMsg) (*SnapshotResponse, error) {
	snap := &SnapshotResponse{
		Type:    "SNAPSHOT",
		Quotes:  make(map[string]json.RawMessage, len(msg.Tokens)),
		Indices: make(map[string]json.RawMessage, len(msg.Indices)),
	}

	keys := make([]string, 0, len(msg.Tokens)+len(msg.Indices))
	for _, tok := range msg.Tokens {
		keys = append(keys, "quote:latest:"+tok)
	}
	for _, name := range msg.Indices {
		keys = append(keys, "index:latest:"+name)
	}
	if len(keys) == 0 {
		return snap, nil
	}

	values, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if i < len(msg.Tokens) {
			snap.Quotes[msg.Tokens[i]] = json.RawMessage(s)
		} else {
			snap.Indices[msg.Indices[i-len(msg.Tokens)]] = json.RawMessage(s)
		}
	}
	return snap, nil
}

// SendJSON marshals and sends a message to the client's send channel.
func SendJSON(c *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[subscribe] json marshal error: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Println("[subscribe] client send buffer full, dropping message")
	}
}

// SendError sends an error response to the client.
func SendError(c *Client, reqID, errMsg string) {
	SendJSON(c, ErrorResponse{
		Type:  "ERROR",
		ReqID: reqID,
		Error: errMsg,
	})
}
