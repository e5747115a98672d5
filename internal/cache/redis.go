package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// RedisStore 以一个 hash 保存兜底订单：field 为订单号，value 为订单 JSON。
// 多个实例共享同一份兜底数据，也能在进程重启后保留。
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cakeshop:transient"
	}
	return &RedisStore{rdb: rdb, key: prefix + ":orders"}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Order, error) {
	data, err := s.rdb.HGet(ctx, s.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transient get %s: %w", id, err)
	}
	var order model.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("transient decode %s: %w", id, err)
	}
	return &order, nil
}

func (s *RedisStore) Put(ctx context.Context, id string, order *model.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key, id, payload).Err(); err != nil {
		return fmt.Errorf("transient put %s: %w", id, err)
	}
	return nil
}

// PutIfAbsent 基于 HSETNX，多实例之间同样互斥
func (s *RedisStore) PutIfAbsent(ctx context.Context, id string, order *model.Order) (bool, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.HSetNX(ctx, s.key, id, payload).Result()
	if err != nil {
		return false, fmt.Errorf("transient reserve %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.HDel(ctx, s.key, id).Err()
}

func (s *RedisStore) List(ctx context.Context) (map[string]*model.Order, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("transient list: %w", err)
	}
	out := make(map[string]*model.Order, len(raw))
	for id, data := range raw {
		var order model.Order
		if err := json.Unmarshal([]byte(data), &order); err != nil {
			// 损坏的条目跳过，不影响其余订单
			logger.Warn("skip undecodable transient order", zap.String("order_id", id), zap.Error(err))
			continue
		}
		out[id] = &order
	}
	return out, nil
}
