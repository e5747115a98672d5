// Package cache 提供支付兜底订单的临时存储。
//
// 订单写库失败时，对账服务把订单放进 TransientStore，保证顾客不被存储故障阻塞；
// 查询解析器优先读取这里，后台 flusher 在数据库恢复后把它们落库。
// memory 后端只在单进程内有效、重启即丢失；多实例部署使用 redis 后端。
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/model"
)

// TransientStore 兜底订单存储；未命中时 Get 返回 (nil, nil)。
// Put 的 key 通常是订单号；兜底订单落库后仍以原 TEMP 号为 key 保存正式记录。
type TransientStore interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	Put(ctx context.Context, id string, order *model.Order) error
	// PutIfAbsent 仅当 id 未被占用时写入，返回是否写入成功
	PutIfAbsent(ctx context.Context, id string, order *model.Order) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) (map[string]*model.Order, error)
}

// New 按配置选择后端
func New(cfg config.TransientConfig, rdb *redis.Client) (TransientStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("transient backend redis requires redis.addr")
		}
		return NewRedisStore(rdb, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown transient backend %q", cfg.Backend)
	}
}

// clone 避免调用方修改存储中的记录
func clone(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.RazorpayOrderID != nil {
		v := *o.RazorpayOrderID
		cp.RazorpayOrderID = &v
	}
	if o.RazorpayPaymentID != nil {
		v := *o.RazorpayPaymentID
		cp.RazorpayPaymentID = &v
	}
	return &cp
}
