package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// MissedResponse is the /api/missed reply carrying replayed envelopes.
type MissedResponse struct {
	Channel    string            `json:"channel"`
	FromSeq    int64             `json:"from_seq"`
	ToSeq      int64             `json:"to_seq"`
	CurrentSeq int64             `json:"current_seq"`
	Envelopes  []json.RawMessage `json:"envelopes"`
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, processStart time.Time) {
	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		lastTS := r.URL.Query().Get("last_ts")
		hub.HandleWSRequest(conn, lastTS)
	})

	// REST: latest data for every channel seen so far
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.GetLatestAll())
	})

	// REST: latest quote for one instrument
	mux.HandleFunc("/api/quote", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		segment := r.URL.Query().Get("segment")
		token := r.URL.Query().Get("token")
		if segment == "" || token == "" {
			http.Error(w, `{"error":"segment and token are required"}`, http.StatusBadRequest)
			return
		}
		data, err := hub.Rdb.Get(r.Context(), "quote:latest:"+segment+":"+token).Bytes()
		if err != nil {
			w.Write([]byte("null"))
			return
		}
		w.Write(data)
	})

	// REST: latest value for one index
	mux.HandleFunc("/api/index", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}
		data, err := hub.Rdb.Get(r.Context(), "index:latest:"+name).Bytes()
		if err != nil {
			w.Write([]byte("null"))
			return
		}
		w.Write(data)
	})

	// REST: replay buffered envelopes for client gap backfill
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		channel := r.URL.Query().Get("channel")
		fromSeq, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
		toSeq, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
		if channel == "" || fromSeq <= 0 {
			http.Error(w, `{"error":"channel and from are required"}`, http.StatusBadRequest)
			return
		}
		if toSeq <= 0 {
			toSeq = hub.GetChannelSeq(channel)
		}

		envelopes := hub.GetReplayRange(channel, fromSeq, toSeq)
		resp := MissedResponse{
			Channel:    channel,
			FromSeq:    fromSeq,
			ToSeq:      toSeq,
			CurrentSeq: hub.GetChannelSeq(channel),
			Envelopes:  make([]json.RawMessage, len(envelopes)),
		}
		for i, e := range envelopes {
			resp.Envelopes[i] = e
		}
		json.NewEncoder(w).Encode(resp)
	})

	// REST: GET/POST /api/watchlist
	mux.HandleFunc("/api/watchlist", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method == "POST" {
			var req Watchlist
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
				return
			}
			hub.Watchlists.Set(req)
			log.Printf("[gateway] watchlist updated: %d tokens, %d indices",
				len(req.Tokens), len(req.Indices))
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}

		// GET
		json.NewEncoder(w).Encode(hub.Watchlists.Get())
	})

	// REST: system metrics snapshot
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		m := CollectMetrics(processStart)
		if hub.Latency != nil {
			m.LatencyP50, m.LatencyP95, m.LatencyP99 = hub.Latency.Percentiles()
		}
		json.NewEncoder(w).Encode(m)
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := true
		if err := hub.Rdb.Ping(r.Context()).Err(); err != nil {
			redisOK = false
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
