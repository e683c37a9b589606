package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erazemk/popis/internal/model"
)

// DefaultRedisPrefix namespaces the keys used by RedisRecords.
const DefaultRedisPrefix = "popis:"

// updateIfExistsScript overwrites a document only if the record still exists,
// so an update racing a delete cannot resurrect it.
var updateIfExistsScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisRecords is a record store holding each document as a field of one
// hash, with a sorted set remembering creation order.
type RedisRecords struct {
	client  *redis.Client
	docsKey string
	seqKey  string
}

// NewRedisRecords returns a record store using keys under prefix.
func NewRedisRecords(client *redis.Client, prefix string) *RedisRecords {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRecords{
		client:  client,
		docsKey: prefix + "records",
		seqKey:  prefix + "records:order",
	}
}

// List returns all records in creation order.
func (s *RedisRecords) List(ctx context.Context) ([]model.InventoryRecord, error) {
	ids, err := s.client.ZRange(ctx, s.seqKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: listing record ids: %w", model.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []model.InventoryRecord{}, nil
	}

	docs, err := s.client.HMGet(ctx, s.docsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", model.ErrStoreUnavailable, err)
	}

	records := make([]model.InventoryRecord, 0, len(ids))
	for i, doc := range docs {
		str, ok := doc.(string)
		if !ok {
			// Deleted between ZRANGE and HMGET.
			continue
		}
		rec, err := decodeRecord(ids[i], []byte(str))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create stores a new record under a generated ID and returns the ID.
func (s *RedisRecords) Create(ctx context.Context, rec model.InventoryRecord) (string, error) {
	doc, err := encodeRecord(rec)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}

	id := uuid.NewString()
	created := rec.CreatedAt
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.docsKey, id, string(doc))
		pipe.ZAdd(ctx, s.seqKey, redis.Z{Score: float64(created.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating record: %w", model.ErrStoreWrite, err)
	}
	return id, nil
}

// Update overwrites the whole document of an existing record.
func (s *RedisRecords) Update(ctx context.Context, id string, rec model.InventoryRecord) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrStoreWrite, err)
	}

	ok, err := updateIfExistsScript.Run(ctx, s.client, []string{s.docsKey}, id, string(doc)).Int()
	if err != nil {
		return fmt.Errorf("%w: updating record: %w", model.ErrStoreWrite, err)
	}
	if ok == 0 {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// SetImageURL patches only the imageUrl field of a record's document.
func (s *RedisRecords) SetImageURL(ctx context.Context, id, url string) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		doc, err := tx.HGet(ctx, s.docsKey, id).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return err
		}

		rec, err := decodeRecord(id, []byte(doc))
		if err != nil {
			return err
		}
		rec.ImageURL = url
		updated, err := encodeRecord(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.docsKey, id, string(updated))
			return nil
		})
		return err
	}, s.docsKey)

	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: setting record image: %w", model.ErrStoreWrite, err)
	}
	return nil
}

// Delete removes a record.
func (s *RedisRecords) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.docsKey, id)
		pipe.ZRem(ctx, s.seqKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: deleting record: %w", model.ErrStoreWrite, err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("record %s: %w", id, model.ErrNotFound)
	}
	return nil
}
