package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"feedenginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader consumes feed updates from Redis pub/sub and serves the
// latest-value keys the Writer maintains. The gateway uses it to stream
// updates to WebSocket clients and to answer snapshot requests.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

// Client returns the underlying Redis client for health checks.
func (r *Reader) Client() *goredis.Client { return r.client }

// SubscribeFirehose subscribes to the firehose channel carrying every
// update. The caller owns the returned PubSub and must Close it.
func (r *Reader) SubscribeFirehose(ctx context.Context) *goredis.PubSub {
	return r.client.Subscribe(ctx, FirehoseChannel)
}

// SubscribeChannels subscribes to explicitly listed channels
// (pub:quote:..., pub:index:..., pub:session:...).
func (r *Reader) SubscribeChannels(ctx context.Context, channels ...string) *goredis.PubSub {
	return r.client.Subscribe(ctx, channels...)
}

// ConsumeUpdates decodes firehose messages and sends them to out.
// Blocks until ctx is cancelled.
func (r *Reader) ConsumeUpdates(ctx context.Context, out chan<- model.Update) error {
	pubsub := r.SubscribeFirehose(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u model.Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				log.Printf("[redis-reader] bad update payload: %v", err)
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// LatestQuote fetches the last published update for an instrument.
// Returns (nil, nil) when no update has been published yet.
func (r *Reader) LatestQuote(ctx context.Context, seg model.Segment, token uint32) ([]byte, error) {
	key := "quote:latest:" + seg.String() + ":" + strconv.FormatUint(uint64(token), 10)
	return r.get(ctx, key)
}

// LatestIndex fetches the last published value for an index.
func (r *Reader) LatestIndex(ctx context.Context, name string) ([]byte, error) {
	return r.get(ctx, "index:latest:"+name)
}

func (r *Reader) get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, nil
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
