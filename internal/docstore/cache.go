package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

// CachedStore is a read-through Redis cache in front of another Store.
// Redis failures never fail a call; they are logged and the inner store answers.
type CachedStore struct {
	Store
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, redis: client, ttl: ttl}
}

func cacheKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

func (c *CachedStore) Get(ctx context.Context, collection, id string) (Document, error) {
	key := cacheKey(collection, id)
	if cached, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var doc Document
		if err := json.Unmarshal(cached, &doc); err == nil {
			return doc, nil
		}
	} else if err != redis.Nil {
		logger.ErrorLogger.Error("Redis get failed", zap.String("key", key), zap.Error(err))
	}

	doc, err := c.Store.Get(ctx, collection, id)
	if err != nil {
		return Document{}, err
	}
	c.put(ctx, doc)
	return doc, nil
}

func (c *CachedStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	docs, err := c.Store.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}
	// warm the per-document keys, like a list page does before detail views
	for _, doc := range docs {
		c.put(ctx, doc)
	}
	return docs, nil
}

func (c *CachedStore) Create(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	doc, err := c.Store.Create(ctx, collection, id, data)
	if err != nil {
		return Document{}, err
	}
	c.put(ctx, doc)
	return doc, nil
}

func (c *CachedStore) Update(ctx context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error) {
	c.evict(ctx, collection, id)
	doc, err := c.Store.Update(ctx, collection, id, fields, expectedVersion)
	if err != nil {
		return Document{}, err
	}
	c.put(ctx, doc)
	return doc, nil
}

func (c *CachedStore) Delete(ctx context.Context, collection, id string) error {
	if err := c.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	c.evict(ctx, collection, id)
	return nil
}

func (c *CachedStore) put(ctx context.Context, doc Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	key := cacheKey(doc.Collection, doc.ID)
	if err := c.redis.SetEX(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching document", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) evict(ctx context.Context, collection, id string) {
	key := cacheKey(collection, id)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		logger.ErrorLogger.Error("Error evicting document", zap.String("key", key), zap.Error(err))
	}
}
