package cache

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoHitCache implements the hit cache contract on a MongoDB collection.
// Each pending hit is one document keyed by hit id; the document store maps
// naturally onto the versioned hit envelope.
type MongoHitCache struct {
	coll *mongo.Collection
}

var _ HitCache = (*MongoHitCache)(nil)

type hitDocument struct {
	ID      string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

// NewMongoHitCache wraps an existing collection.
func NewMongoHitCache(coll *mongo.Collection) (*MongoHitCache, error) {
	if coll == nil {
		return nil, ErrNilClient
	}
	return &MongoHitCache{coll: coll}, nil
}

func (c *MongoHitCache) CacheHits(ctx context.Context, hits map[string][]byte) error {
	if len(hits) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(hits))
	for id, data := range hits {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(hitDocument{ID: id, Payload: data}).
			SetUpsert(true))
	}
	_, err := c.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (c *MongoHitCache) LookupHits(ctx context.Context) (map[string][]byte, error) {
	cursor, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string][]byte)
	for cursor.Next(ctx) {
		var doc hitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.ID] = doc.Payload
	}
	return out, cursor.Err()
}

func (c *MongoHitCache) FlushHits(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (c *MongoHitCache) FlushAllHits(ctx context.Context) error {
	_, err := c.coll.DeleteMany(ctx, bson.M{})
	return err
}
