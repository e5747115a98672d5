package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

var errNotYetVisible = errors.New("order not yet visible")

// ResolverConfig 查询重试参数
type ResolverConfig struct {
	Attempts         int
	Step             time.Duration
	MaxDelay         time.Duration
	DiagnosticSample int
}

// Resolver 把客户端给出的订单标识（内部订单号或网关订单号）解析为订单
type Resolver struct {
	orders    repository.OrderRepository
	transient cache.TransientStore
	cfg       ResolverConfig
}

func NewResolver(orders repository.OrderRepository, transient cache.TransientStore, cfg ResolverConfig) *Resolver {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Step <= 0 {
		cfg.Step = 500 * time.Millisecond
	}
	if cfg.DiagnosticSample <= 0 {
		cfg.DiagnosticSample = 5
	}
	return &Resolver{orders: orders, transient: transient, cfg: cfg}
}

// Lookup 单次查找：兜底存储 -> 主键 -> 网关订单号。未命中返回 (nil, nil)
func (r *Resolver) Lookup(ctx context.Context, id string) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if order := r.fromTransient(ctx, id); order != nil {
		return order, nil
	}
	return r.fromStore(ctx, id)
}

// Resolve 带重试的查找。兜底存储只查一次，之后在重试间隔内反复查询数据库。
// 重试耗尽时返回 *NotFoundError（errors.Is(err, ErrNotFound)）；
// 数据库始终不可用时返回 repository.ErrStoreUnavailable。
func (r *Resolver) Resolve(ctx context.Context, id string) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "order id is required")
	}
	if order := r.fromTransient(ctx, id); order != nil {
		return order, nil
	}

	order, err := backoff.Retry(ctx, func() (*model.Order, error) {
		order, err := r.fromStore(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, errNotYetVisible
		}
		return order, nil
	},
		backoff.WithBackOff(newLinearBackOff(r.cfg.Step, r.cfg.MaxDelay)),
		backoff.WithMaxTries(uint(r.cfg.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("order lookup retry", zap.String("order_id", id), zap.Duration("delay", next), zap.Error(err))
		}),
	)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, errNotYetVisible) {
		return nil, err
	}

	nf := r.diagnose(ctx, id)
	logger.Info("order not found", zap.String("order_id", id),
		zap.Int64("total_orders", nf.TotalOrders), zap.Strings("sample_ids", nf.SampleIDs))
	return nil, nf
}

func (r *Resolver) fromTransient(ctx context.Context, id string) *model.Order {
	if r.transient == nil {
		return nil
	}
	order, err := r.transient.Get(ctx, id)
	if err != nil {
		logger.Warn("transient lookup failed", zap.String("order_id", id), zap.Error(err))
		return nil
	}
	return order
}

func (r *Resolver) fromStore(ctx context.Context, id string) (*model.Order, error) {
	order, err := r.orders.GetByID(ctx, id)
	if err != nil || order != nil {
		return order, err
	}
	return r.orders.GetByRazorpayOrderID(ctx, id)
}

// diagnose 统计订单总数与最近订单号；失败时尽量返回已有信息
func (r *Resolver) diagnose(ctx context.Context, id string) *NotFoundError {
	nf := &NotFoundError{ID: id}
	if count, err := r.orders.Count(ctx); err == nil {
		nf.TotalOrders = count
	}
	if ids, err := r.orders.RecentIDs(ctx, r.cfg.DiagnosticSample); err == nil {
		nf.SampleIDs = ids
	}
	return nf
}
