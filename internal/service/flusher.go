package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// FlushResult 一轮回写的统计
type FlushResult struct {
	Flushed int `json:"flushed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// TransientFlusher 数据库恢复后把兜底订单落库。
// 落库后以原 TEMP 号为 key 保存正式记录，已发给顾客的 TEMP 号仍可查到订单。
type TransientFlusher struct {
	orders    repository.OrderRepository
	guard     repository.ConnectivityGuard
	transient cache.TransientStore
	interval  time.Duration

	mu sync.Mutex // 同一时刻只允许一轮回写
}

func NewTransientFlusher(orders repository.OrderRepository, guard repository.ConnectivityGuard, transient cache.TransientStore, interval time.Duration) *TransientFlusher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TransientFlusher{orders: orders, guard: guard, transient: transient, interval: interval}
}

// Start 启动定时回写；返回停止函数
func (f *TransientFlusher) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.loop(stop)
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *TransientFlusher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), f.interval)
			res, err := f.FlushOnce(ctx)
			cancel()
			if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
				logger.Warn("transient flush failed", zap.Error(err))
			}
			if res.Flushed > 0 || res.Failed > 0 {
				logger.Info("transient flush", zap.Int("flushed", res.Flushed), zap.Int("failed", res.Failed))
			}
		}
	}
}

// FlushOnce 回写一轮。数据库不可用时返回 ErrStoreUnavailable 且不做任何修改
func (f *TransientFlusher) FlushOnce(ctx context.Context) (FlushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res FlushResult
	if f.guard != nil {
		if status := f.guard.Probe(ctx); !status.Connected {
			return res, repository.ErrStoreUnavailable
		}
	}
	entries, err := f.transient.List(ctx)
	if err != nil {
		return res, err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// 按 TEMP 号（即时间戳）顺序落库，保持日序号与下单顺序一致
	sort.Strings(keys)

	for _, key := range keys {
		order := entries[key]
		if !order.IsTransient() {
			res.Skipped++
			continue
		}
		durable, err := f.persist(ctx, order)
		if err != nil {
			res.Failed++
			logger.Warn("flush transient order failed", zap.String("order_id", key), zap.Error(err))
			if errors.Is(err, repository.ErrStoreUnavailable) {
				return res, err
			}
			continue
		}
		if err := f.transient.Put(ctx, key, durable); err != nil {
			res.Failed++
			logger.Warn("replace transient entry failed", zap.String("order_id", key), zap.Error(err))
			continue
		}
		res.Flushed++
		logger.Info("transient order persisted", zap.String("transient_id", key), zap.String("order_id", durable.ID))
	}
	return res, nil
}

// persist 按网关订单号幂等
func (f *TransientFlusher) persist(ctx context.Context, order *model.Order) (*model.Order, error) {
	if gw := order.GatewayOrderID(); gw != "" {
		existing, err := f.orders.GetByRazorpayOrderID(ctx, gw)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}
	durable, err := f.orders.Create(ctx, model.DraftFrom(order))
	if errors.Is(err, repository.ErrGatewayOrderExists) {
		existing, gerr := f.orders.GetByRazorpayOrderID(ctx, order.GatewayOrderID())
		if gerr == nil && existing != nil {
			return existing, nil
		}
	}
	return durable, err
}
