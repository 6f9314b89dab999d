package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"feedenginev1/internal/model"
	redisstore "feedenginev1/internal/store/redis"
)

// PubSubRouter manages Redis PubSub subscriptions and routes messages
// to the broadcaster for fan-out to WebSocket clients.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// RunFirehose subscribes to the firehose channel carrying every update
// and routes each message to its logical channel. Blocks until ctx is
// cancelled.
func (r *PubSubRouter) RunFirehose(ctx context.Context) {
	pubsub := r.hub.Rdb.Subscribe(ctx, redisstore.FirehoseChannel)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", redisstore.FirehoseChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			payload := []byte(msg.Payload)
			channel, ok := channelFor(payload)
			if !ok {
				continue
			}
			r.hub.broadcast(channel, payload)
		}
	}
}

// channelFor derives the logical channel name from an update payload.
// The names mirror the per-instrument pub/sub channels the engine
// publishes, so clients can use either transport interchangeably.
func channelFor(payload []byte) (string, bool) {
	var u model.Update
	if err := json.Unmarshal(payload, &u); err != nil {
		log.Printf("[gateway] bad update payload: %v", err)
		return "", false
	}
	switch u.Kind {
	case model.KindIndex:
		return "pub:index:" + u.IndexName, true
	case model.KindSession:
		return "pub:session:" + u.Segment.String(), true
	case model.KindTrade, model.KindDepth, model.KindMasterChange:
		return "pub:quote:" + u.Segment.String() + ":" + strconv.FormatUint(uint64(u.Token), 10), true
	default:
		return "", false
	}
}
