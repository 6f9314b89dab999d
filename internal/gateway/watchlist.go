package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const watchlistRedisKey = "gateway:watchlist"

// WatchlistStore manages the default watchlist and broadcasts changes.
type WatchlistStore struct {
	hub *Hub
	rdb *goredis.Client
}

// NewWatchlistStore creates a WatchlistStore backed by the given Hub.
func NewWatchlistStore(hub *Hub, rdb *goredis.Client) *WatchlistStore {
	return &WatchlistStore{hub: hub, rdb: rdb}
}

// Load restores the watchlist from Redis (if available).
// Called once during gateway startup. Returns true if it was restored.
func (ws *WatchlistStore) Load(ctx context.Context) bool {
	data, err := ws.rdb.Get(ctx, watchlistRedisKey).Result()
	if err != nil {
		return false
	}
	var wl Watchlist
	if json.Unmarshal([]byte(data), &wl) != nil {
		return false
	}
	ws.hub.mu.Lock()
	ws.hub.watchlist = wl
	ws.hub.mu.Unlock()
	log.Printf("[watchlist] restored from Redis: %d tokens, %d indices",
		len(wl.Tokens), len(wl.Indices))
	return true
}

// Get returns the current watchlist.
func (ws *WatchlistStore) Get() Watchlist {
	ws.hub.mu.RLock()
	defer ws.hub.mu.RUnlock()
	return ws.hub.watchlist
}

// Set updates the watchlist, persists to Redis, and broadcasts to all
// connected clients.
func (ws *WatchlistStore) Set(wl Watchlist) {
	ws.hub.mu.Lock()
	ws.hub.watchlist = wl
	ws.hub.mu.Unlock()

	// Persist to Redis (fire-and-forget)
	if ws.rdb != nil {
		data, err := json.Marshal(wl)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := ws.rdb.Set(ctx, watchlistRedisKey, data, 0).Err(); err != nil {
				log.Printf("[watchlist] WARNING: failed to persist to Redis: %v", err)
			}
		}
	}

	envelope, _ := json.Marshal(map[string]interface{}{
		"type":    "watchlist_update",
		"tokens":  wl.Tokens,
		"indices": wl.Indices,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})

	ws.hub.mu.RLock()
	defer ws.hub.mu.RUnlock()
	for client := range ws.hub.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
}
