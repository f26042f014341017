package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/parliament/types"
)

// RedisSessionStore is a Redis-backed SessionStore. The session document is
// stored as JSON under one key; sorted sets index sessions per (user,
// project) by update time, and a set tracks every session of a project for
// cascade deletion.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore connects to Redis and returns a session store.
func NewRedisSessionStore(cfg RedisConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedisSessionStore(client, cfg), nil
}

// NewRedisSessionStoreWithClient wraps an existing client, primarily for
// tests.
func NewRedisSessionStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisSessionStore {
	return newRedisSessionStore(client, cfg)
}

func newRedisSessionStore(client *redis.Client, cfg RedisConfig) *RedisSessionStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "parliament:"
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: prefix + "session:",
		ttl:       cfg.TTL,
	}
}

func (s *RedisSessionStore) dataKey(sessionID string) string {
	return s.keyPrefix + "data:" + sessionID
}

func (s *RedisSessionStore) recentKey(userID int64, projectID string) string {
	return fmt.Sprintf("%srecent:%d:%s", s.keyPrefix, userID, projectID)
}

func (s *RedisSessionStore) projectKey(projectID string) string {
	return s.keyPrefix + "project:" + projectID
}

func (s *RedisSessionStore) Create(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	exists, err := s.client.Exists(ctx, s.dataKey(session.ID)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrAlreadyExists
	}
	return s.write(ctx, session)
}

func (s *RedisSessionStore) Update(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	exists, err := s.client.Exists(ctx, s.dataKey(session.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.write(ctx, session)
}

// write stores the document and refreshes both indexes in one pipeline.
func (s *RedisSessionStore) write(ctx context.Context, session *types.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(session.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.recentKey(session.UserID, session.ProjectID), redis.Z{
		Score:  float64(session.UpdatedAt.UnixMilli()),
		Member: session.ID,
	})
	pipe.SAdd(ctx, s.projectKey(session.ProjectID), session.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	data, err := s.client.Get(ctx, s.dataKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) GetActive(ctx context.Context, userID int64, projectID string) (*types.Session, error) {
	ids, err := s.client.ZRevRange(ctx, s.recentKey(userID, projectID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue // expired document, index entry is stale
		}
		if err != nil {
			return nil, err
		}
		if session.Active() {
			return session, nil
		}
	}
	return nil, ErrNotFound
}

func (s *RedisSessionStore) ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.recentKey(userID, projectID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *RedisSessionStore) DeleteProjectSessions(ctx context.Context, projectID string) (int64, error) {
	ids, err := s.client.SMembers(ctx, s.projectKey(projectID)).Result()
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.dataKey(id))
		pipe.ZRem(ctx, s.recentKey(session.UserID, session.ProjectID), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, err
		}
		deleted++
	}

	if err := s.client.Del(ctx, s.projectKey(projectID)).Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
