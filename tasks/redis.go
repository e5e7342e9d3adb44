package tasks

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/internal/cache"
	"github.com/BaSui01/methodflow/types"
)

const (
	redisKeyPrefix = "methodflow:task:"
	redisIndexKey  = "methodflow:tasks"
)

// RedisStore 把任务记录以 JSON 保存在 Redis 中, 并用有序集合按创建时间索引.
type RedisStore struct {
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a store on top of an initialized cache manager.
// A zero ttl uses the manager default.
func NewRedisStore(m *cache.Manager, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		cache:  m,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "task_store")),
	}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	score := float64(rec.CreatedAt.UnixNano())
	if err := s.cache.SetJSONIndexed(ctx, redisKey(rec.ID), rec, s.ttl, redisIndexKey, score); err != nil {
		return types.WrapError(err, types.ErrStorage, "create task")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := s.cache.GetJSON(ctx, redisKey(id), &rec); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, ErrTaskNotFound(id)
		}
		return nil, types.WrapError(err, types.ErrStorage, "get task")
	}
	return &rec, nil
}

func (s *RedisStore) Update(ctx context.Context, rec *Record) error {
	if _, err := s.Get(ctx, rec.ID); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, redisKey(rec.ID), rec, s.ttl); err != nil {
		return types.WrapError(err, types.ErrStorage, "update task")
	}
	return nil
}

// List 读取索引中最新的记录. 已过期的记录会从索引中清除.
func (s *RedisStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	keys, err := s.cache.RecentMembers(ctx, redisIndexKey, limit)
	if err != nil {
		return nil, types.WrapError(err, types.ErrStorage, "list tasks")
	}

	out := make([]*Record, 0, len(keys))
	var expired []string
	for _, key := range keys {
		var rec Record
		err := s.cache.GetJSON(ctx, key, &rec)
		if cache.IsCacheMiss(err) {
			expired = append(expired, key)
			continue
		}
		if err != nil {
			return nil, types.WrapError(err, types.ErrStorage, "list tasks")
		}
		out = append(out, &rec)
	}

	if len(expired) > 0 {
		if err := s.cache.RemoveMembers(ctx, redisIndexKey, expired...); err != nil {
			s.logger.Warn("failed to prune expired task index entries",
				zap.String("ids", strings.Join(expired, ",")),
				zap.Error(err))
		}
	}
	return out, nil
}
