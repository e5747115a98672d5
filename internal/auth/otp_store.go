package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// errOTPMissing 未发送或已过期
var errOTPMissing = errors.New("otp not found")

// OTPStore 保存 OTP 的 bcrypt 哈希，过期后自动失效
type OTPStore interface {
	Save(ctx context.Context, mobile, hash string, ttl time.Duration) error
	Load(ctx context.Context, mobile string) (string, error)
	Delete(ctx context.Context, mobile string) error
}

type otpEntry struct {
	hash      string
	expiresAt time.Time
}

// MemoryOTPStore 单实例部署使用
type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{entries: make(map[string]otpEntry), now: time.Now}
}

func (s *MemoryOTPStore) Save(_ context.Context, mobile, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[mobile] = otpEntry{hash: hash, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryOTPStore) Load(_ context.Context, mobile string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[mobile]
	if !ok {
		return "", errOTPMissing
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, mobile)
		return "", errOTPMissing
	}
	return e.hash, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, mobile string) error {
	s.mu.Lock()
	delete(s.entries, mobile)
	s.mu.Unlock()
	return nil
}

// RedisOTPStore 多实例共享 OTP，过期交给 redis TTL
type RedisOTPStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisOTPStore(rdb *redis.Client, prefix string) *RedisOTPStore {
	if prefix == "" {
		prefix = "cakeshop"
	}
	return &RedisOTPStore{rdb: rdb, prefix: prefix + ":otp:"}
}

func (s *RedisOTPStore) Save(ctx context.Context, mobile, hash string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+mobile, hash, ttl).Err()
}

func (s *RedisOTPStore) Load(ctx context.Context, mobile string) (string, error) {
	hash, err := s.rdb.Get(ctx, s.prefix+mobile).Result()
	if errors.Is(err, redis.Nil) {
		return "", errOTPMissing
	}
	return hash, err
}

func (s *RedisOTPStore) Delete(ctx context.Context, mobile string) error {
	return s.rdb.Del(ctx, s.prefix+mobile).Err()
}
