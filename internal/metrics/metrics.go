package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the feed engine.
type Metrics struct {
	PacketsTotal  *prometheus.CounterVec // labels: feed
	MessagesTotal *prometheus.CounterVec // labels: feed, code
	FrameErrors   *prometheus.CounterVec // labels: feed, reason
	UnknownCodes  *prometheus.CounterVec // labels: feed
	StoreDrops    *prometheus.CounterVec // labels: feed (unknown-token updates)

	LZODecompressDur prometheus.Histogram
	LZOErrors        prometheus.Counter

	ReceiverTimeouts *prometheus.CounterVec // labels: feed
	LastPacketAge    *prometheus.GaugeVec   // labels: feed

	// Greeks enrichment
	GreeksComputeDur prometheus.Histogram
	GreeksTotal      prometheus.Counter

	// Master contract loading
	ContractsLoaded *prometheus.GaugeVec // labels: segment

	// Downstream plumbing
	RingBufOverflow  prometheus.Counter
	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber
	RedisPublishDur  prometheus.Histogram
	SQLiteCommitDur  prometheus.Histogram
	UpdatesPublished prometheus.Counter

	// Gateway
	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		PacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_packets_total",
			Help: "UDP datagrams received per feed",
		}, []string{"feed"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_messages_total",
			Help: "Broadcast messages decoded per feed and transaction code",
		}, []string{"feed", "code"}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_frame_errors_total",
			Help: "Messages discarded during framing or parsing",
		}, []string{"feed", "reason"}),
		UnknownCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_unknown_codes_total",
			Help: "Messages with a transaction code the demux does not handle",
		}, []string{"feed"}),
		StoreDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_store_drops_total",
			Help: "Updates dropped because the token has no store slot",
		}, []string{"feed"}),

		LZODecompressDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedengine_lzo_decompress_duration_seconds",
			Help:    "LZO1Z decompression latency per message",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		LZOErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedengine_lzo_errors_total",
			Help: "Messages dropped with a decompression error",
		}),

		ReceiverTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_receiver_timeouts_total",
			Help: "Receive-loop timeout ticks per feed (idle feed indicator)",
		}, []string{"feed"}),
		LastPacketAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedengine_last_packet_age_seconds",
			Help: "Seconds since the last datagram arrived on a feed",
		}, []string{"feed"}),

		GreeksComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedengine_greeks_compute_duration_seconds",
			Help:    "Black-Scholes sweep latency per enrichment pass",
			Buckets: prometheus.DefBuckets,
		}),
		GreeksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedengine_greeks_total",
			Help: "Option rows enriched with greeks",
		}),

		ContractsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedengine_contracts_loaded",
			Help: "Contracts materialised from the master file per segment",
		}, []string{"segment"}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedengine_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped updates)",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedengine_fanout_drops_total",
			Help: "Updates dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedengine_redis_publish_duration_seconds",
			Help:    "Redis publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedengine_sqlite_commit_duration_seconds",
			Help:    "SQLite contract-cache batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		UpdatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedengine_updates_published_total",
			Help: "Updates published to Redis pub/sub",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedgateway_ws_clients",
			Help: "Connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.PacketsTotal,
		m.MessagesTotal,
		m.FrameErrors,
		m.UnknownCodes,
		m.StoreDrops,
		m.LZODecompressDur,
		m.LZOErrors,
		m.ReceiverTimeouts,
		m.LastPacketAge,
		m.GreeksComputeDur,
		m.GreeksTotal,
		m.ContractsLoaded,
		m.RingBufOverflow,
		m.FanoutDropsTotal,
		m.RedisPublishDur,
		m.SQLiteCommitDur,
		m.UpdatesPublished,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedsRunning   int       `json:"feeds_running"`
	LastPacketTime time.Time `json:"last_packet_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	MastersLoaded  bool      `json:"masters_loaded"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedsRunning(n int) {
	h.mu.Lock()
	h.FeedsRunning = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastPacketTime(t time.Time) {
	h.mu.Lock()
	h.LastPacketTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetMastersLoaded(v bool) {
	h.mu.Lock()
	h.MastersLoaded = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.FeedsRunning == 0 || !h.MastersLoaded {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	// Packet age
	packetAge := ""
	if !h.LastPacketTime.IsZero() {
		packetAge = time.Since(h.LastPacketTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		FeedsRunning    int     `json:"feeds_running"`
		LastPacketTime  string  `json:"last_packet_time"`
		PacketAge       string  `json:"packet_age"`
		MastersLoaded   bool    `json:"masters_loaded"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedsRunning:    h.FeedsRunning,
		LastPacketTime:  h.LastPacketTime.Format(time.RFC3339),
		PacketAge:       packetAge,
		MastersLoaded:   h.MastersLoaded,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
