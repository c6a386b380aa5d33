package source

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the pub/sub channels the ingest side
// publishes snapshots on, one channel per collection.
const channelPrefix = "motorpass:snap:"

// RedisSource receives snapshots over Redis pub/sub. Each message body
// is a JSON array of documents representing the collection's full
// current contents.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource wraps an existing client.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

// Subscribe listens on every collection channel until ctx ends. Messages
// that fail to decode are logged and skipped; a dirty publisher must not
// stall the pipeline.
func (s *RedisSource) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	channels := make([]string, len(Collections))
	for i, c := range Collections {
		channels[i] = channelPrefix + c
	}
	sub := s.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				collection := strings.TrimPrefix(msg.Channel, channelPrefix)
				var docs []map[string]any
				if err := json.Unmarshal([]byte(msg.Payload), &docs); err != nil {
					log.Printf("snapshot decode failed for %s: %v", collection, err)
					continue
				}
				select {
				case out <- Snapshot{Collection: collection, Docs: docs}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
