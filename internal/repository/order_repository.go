package repository

import (
	"context"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// OrderRepository 订单仓储接口。
// 查询类方法在记录不存在时返回 (nil, nil)，不存在不是错误。
type OrderRepository interface {
	// Create 在单个事务内生成当天序号订单号并插入；
	// 网关订单号已被占用时返回 ErrGatewayOrderExists
	Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error)

	// GetByID 按主键查询，未命中时回退为大小写不敏感匹配
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// GetByRazorpayOrderID 按支付网关订单号查询
	GetByRazorpayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error)

	// List 按创建时间升序返回全部订单
	List(ctx context.Context) ([]*model.Order, error)

	// Update 稀疏更新并刷新 updated_at；订单不存在时返回 (nil, nil)
	Update(ctx context.Context, id string, upd model.OrderUpdate) (*model.Order, error)

	// Delete 删除订单，返回是否删除了记录
	Delete(ctx context.Context, id string) (bool, error)

	// Count 统计订单数量
	Count(ctx context.Context) (int64, error)

	// RecentIDs 最近创建的订单号（用于排查）
	RecentIDs(ctx context.Context, limit int) ([]string, error)

	// Close 关闭数据库连接
	Close() error
}

// StockRepository 缺货标记仓储
type StockRepository interface {
	SetOutOfStock(ctx context.Context, productID int, outOfStock bool) error
	ListOutOfStock(ctx context.Context) ([]int, error)
}
