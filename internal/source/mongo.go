package source

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSource polls a Mongo database and emits a full snapshot of each
// collection per tick. The dashboard is read-mostly and collections are
// small, so whole-collection reads stay cheap and keep the replace
// semantics of the pipeline trivially correct.
type MongoSource struct {
	db       *mongo.Database
	interval time.Duration
}

// NewMongoSource polls db every interval (default 5s).
func NewMongoSource(db *mongo.Database, interval time.Duration) *MongoSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MongoSource{db: db, interval: interval}
}

// Subscribe emits one snapshot per collection immediately, then again on
// every poll tick. Per-collection read failures are logged and that
// collection simply keeps its previous state downstream.
func (s *MongoSource) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			for _, collection := range Collections {
				docs, err := s.readAll(ctx, collection)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("mongo read %s failed: %v", collection, err)
					continue
				}
				select {
				case out <- Snapshot{Collection: collection, Docs: docs}:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *MongoSource) readAll(ctx context.Context, collection string) ([]map[string]any, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []map[string]any
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, normalizeBSON(raw))
	}
	return docs, cur.Err()
}

// normalizeBSON rewrites driver-specific value types into the plain
// shapes the derivation core decodes: DateTime to time.Time, ObjectID to
// its hex string.
func normalizeBSON(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.DateTime:
			out[k] = val.Time()
		case primitive.Timestamp:
			out[k] = time.Unix(int64(val.T), 0)
		case primitive.ObjectID:
			out[k] = val.Hex()
		case bson.M:
			out[k] = normalizeBSON(val)
		case int32:
			out[k] = int(val)
		default:
			out[k] = v
		}
	}
	return out
}
