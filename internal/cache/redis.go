package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/compress"
	"github.com/emrgen/docscan/internal/model"
)

const documentVersionHash = "document:updated_at"

func documentKey(id string) string {
	return "document:" + id
}

var _ DocumentCache = (*RedisDocumentCache)(nil)

// RedisDocumentCache keeps encoded document snapshots with a TTL. The updated_at
// of every cached snapshot is mirrored in a hash for inspection.
type RedisDocumentCache struct {
	client  *redis.Client
	encoder compress.Compress
	ttl     time.Duration
}

func NewRedisDocumentCache(addr, password string, db int, ttl time.Duration, encoder compress.Compress) *RedisDocumentCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		Protocol: 2, // Connection protocol
	})

	if encoder == nil {
		encoder = compress.NewGZip()
	}

	return &RedisDocumentCache{client: client, encoder: encoder, ttl: ttl}
}

func (r *RedisDocumentCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisDocumentCache) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	res := r.client.Get(ctx, documentKey(id.String()))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	data, err := r.encoder.Decode(buf)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *RedisDocumentCache) SetDocument(ctx context.Context, id uuid.UUID, doc *model.Document) error {
	marshal, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	encoded, err := r.encoder.Encode(marshal)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := p.Set(ctx, documentKey(id.String()), encoded, r.ttl).Err(); err != nil {
			return err
		}

		if err := p.HSet(ctx, documentVersionHash, id.String(), doc.UpdatedAt.UnixMilli()).Err(); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		logrus.Warnf("failed to cache document %s: %v", id, err)
	}

	return err
}

func (r *RedisDocumentCache) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, documentKey(id.String()))
		p.HDel(ctx, documentVersionHash, id.String())
		return nil
	})
	return err
}

func (r *RedisDocumentCache) Close() error {
	return r.client.Close()
}
