package redis

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
	"unsafe"

	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultLatestTTL = 30 * time.Minute

	// FirehoseChannel carries every update as JSON; the gateway and other
	// cross-instrument consumers subscribe here.
	FirehoseChannel = "pub:updates"
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes feed updates to Redis: a latest-value key per
// instrument plus pub/sub channels for real-time subscribers.
type Writer struct {
	client *goredis.Client
	met    *metrics.Metrics
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig, met *metrics.Metrics) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, met: met}, nil
}

// Run reads updates from updateCh and publishes them to Redis.
// Blocks until ctx is cancelled or updateCh is closed.
func (w *Writer) Run(ctx context.Context, updateCh <-chan model.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updateCh:
			if !ok {
				return
			}
			w.writeUpdate(ctx, u)
		}
	}
}

// WriteBatch publishes multiple updates in a single Redis pipeline.
// This batches SET + PUBLISH for all updates into one network roundtrip.
func (w *Writer) WriteBatch(ctx context.Context, updates []model.Update) {
	if len(updates) == 0 {
		return
	}
	start := time.Now()

	pipe := w.client.Pipeline()
	for i := range updates {
		w.enqueue(ctx, pipe, &updates[i])
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] batch pipeline error (%d updates): %v", len(updates), err)
		return
	}
	if w.met != nil {
		w.met.RedisPublishDur.Observe(time.Since(start).Seconds())
		w.met.UpdatesPublished.Add(float64(len(updates)))
	}
}

// writeUpdate performs pipelined writes for a single update.
func (w *Writer) writeUpdate(ctx context.Context, u model.Update) error {
	start := time.Now()

	pipe := w.client.Pipeline()
	w.enqueue(ctx, pipe, &u)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[redis] pipeline error for token %d: %v", u.Token, err)
		return err
	}
	if w.met != nil {
		w.met.RedisPublishDur.Observe(time.Since(start).Seconds())
		w.met.UpdatesPublished.Inc()
	}
	return nil
}

// enqueue adds the SET + PUBLISH commands for one update to a pipeline.
// OPTIMIZED: uses string concat instead of fmt.Sprintf and a zero-copy
// []byte→string conversion (safe: the JSON buffer is not mutated after).
func (w *Writer) enqueue(ctx context.Context, pipe goredis.Pipeliner, u *model.Update) {
	jsonBytes := u.JSON()
	jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

	switch u.Kind {
	case model.KindIndex:
		pipe.Set(ctx, "index:latest:"+u.IndexName, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, "pub:index:"+u.IndexName, jsonData)
	case model.KindSession:
		pipe.Publish(ctx, "pub:session:"+u.Segment.String(), jsonData)
	default:
		key := u.Segment.String() + ":" + strconv.FormatUint(uint64(u.Token), 10)
		pipe.Set(ctx, "quote:latest:"+key, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, "pub:quote:"+key, jsonData)
	}
	pipe.Publish(ctx, FirehoseChannel, jsonData)
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
