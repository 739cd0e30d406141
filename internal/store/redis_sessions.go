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

type redisSessionStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisSessionStore stores sessions as JSON values. A zero ttl keeps them until deleted.
func NewRedisSessionStore(client *redis.Client, namespace string, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *redisSessionStore) key(userID int64) string {
	return s.namespace + ":session:" + strconv.FormatInt(userID, 10)
}

func (s *redisSessionStore) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", userID, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", userID, err)
	}
	sess.UserID = userID
	return &sess, nil
}

func (s *redisSessionStore) Save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", sess.UserID, err)
	}
	if err := s.client.Set(ctx, s.key(sess.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", sess.UserID, err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session %d: %w", userID, err)
	}
	return nil
}
