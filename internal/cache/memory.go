package cache

import (
	"context"
	"sync"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// MemoryStore 进程内兜底存储，无过期、无容量上限
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*model.Order)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.orders[id]), nil
}

func (s *MemoryStore) Put(_ context.Context, id string, order *model.Order) error {
	s.mu.Lock()
	s.orders[id] = clone(order)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, id string, order *model.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.orders[id]; taken {
		return false, nil
	}
	s.orders[id] = clone(order)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) (map[string]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.Order, len(s.orders))
	for k, v := range s.orders {
		out[k] = clone(v)
	}
	return out, nil
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
