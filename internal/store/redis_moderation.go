package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/listing-bot/internal/domain"
)

type redisModerationQueue struct {
	client    *redis.Client
	namespace string
}

// NewRedisModerationQueue stores entries as JSON values indexed by a sorted set on creation time.
func NewRedisModerationQueue(client *redis.Client, namespace string) ModerationQueue {
	return &redisModerationQueue{client: client, namespace: namespace}
}

func (q *redisModerationQueue) entryKey(id string) string {
	return q.namespace + ":modq:entry:" + id
}

func (q *redisModerationQueue) indexKey() string {
	return q.namespace + ":modq:index"
}

func (q *redisModerationQueue) Add(ctx context.Context, entry domain.ModerationEntry) error {
	if entry.ID == "" {
		return errors.New("moderation entry id cannot be empty")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", entry.ID, err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.entryKey(entry.ID), raw, 0)
		pipe.ZAdd(ctx, q.indexKey(), redis.Z{Score: float64(entry.CreatedAt.UnixNano()), Member: entry.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", entry.ID, err)
	}
	return nil
}

func (q *redisModerationQueue) Get(ctx context.Context, id string) (domain.ModerationEntry, error) {
	raw, err := q.client.Get(ctx, q.entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ModerationEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ModerationEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	var entry domain.ModerationEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.ModerationEntry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return entry, nil
}

func (q *redisModerationQueue) Remove(ctx context.Context, id string) (bool, error) {
	var del *redis.IntCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, q.entryKey(id))
		pipe.ZRem(ctx, q.indexKey(), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("remove entry %s: %w", id, err)
	}
	return del.Val() > 0, nil
}

func (q *redisModerationQueue) List(ctx context.Context) ([]domain.ModerationEntry, error) {
	ids, err := q.client.ZRange(ctx, q.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = q.entryKey(id)
	}
	values, err := q.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	entries := make([]domain.ModerationEntry, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// index outlived the entry
			q.client.ZRem(ctx, q.indexKey(), ids[i])
			continue
		}
		var entry domain.ModerationEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type redisRejectionContexts struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisRejectionContexts stores each moderator's reject target with an expiry.
func NewRedisRejectionContexts(client *redis.Client, namespace string, ttl time.Duration) RejectionContexts {
	return &redisRejectionContexts{client: client, namespace: namespace, ttl: ttl}
}

func (r *redisRejectionContexts) key(moderatorID int64) string {
	return r.namespace + ":modreject:" + strconv.FormatInt(moderatorID, 10)
}

func (r *redisRejectionContexts) Set(ctx context.Context, moderatorID int64, submissionID string) error {
	if err := r.client.Set(ctx, r.key(moderatorID), submissionID, r.ttl).Err(); err != nil {
		return fmt.Errorf("set reject context %d: %w", moderatorID, err)
	}
	return nil
}

func (r *redisRejectionContexts) Get(ctx context.Context, moderatorID int64) (string, error) {
	id, err := r.client.Get(ctx, r.key(moderatorID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get reject context %d: %w", moderatorID, err)
	}
	return id, nil
}

func (r *redisRejectionContexts) Clear(ctx context.Context, moderatorID int64) error {
	if err := r.client.Del(ctx, r.key(moderatorID)).Err(); err != nil {
		return fmt.Errorf("clear reject context %d: %w", moderatorID, err)
	}
	return nil
}
