package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

const defaultCreateAttempts = 3

// GormOrderRepository 基于 gorm 的订单仓储实现（Postgres，测试中为 SQLite）
type GormOrderRepository struct {
	db             *gorm.DB
	now            func() time.Time
	loc            *time.Location
	createAttempts int
	schema         schemaGuard
}

// Option 仓储可选参数
type Option func(*GormOrderRepository)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(r *GormOrderRepository) { r.now = now }
}

// WithLocation 订单号日期使用的时区
func WithLocation(loc *time.Location) Option {
	return func(r *GormOrderRepository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithCreateAttempts 主键冲突时的最大尝试次数
func WithCreateAttempts(n int) Option {
	return func(r *GormOrderRepository) {
		if n > 0 {
			r.createAttempts = n
		}
	}
}

// NewOrderRepository 创建订单仓储；db 为 nil 时所有操作返回 ErrStoreUnavailable
func NewOrderRepository(db *gorm.DB, opts ...Option) *GormOrderRepository {
	r := &GormOrderRepository{
		db:             db,
		now:            time.Now,
		loc:            time.Local,
		createAttempts: defaultCreateAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GormOrderRepository) ready(ctx context.Context) error {
	return r.schema.ensure(ctx, r.db)
}

// clock 返回微秒精度的当前时间，与 timestamptz 精度一致
func (r *GormOrderRepository) clock() time.Time {
	return r.now().In(r.loc).Truncate(time.Microsecond)
}

// Create 创建订单。
// 序号由“统计当天订单数 + 1”得出；并发创建可能算出相同序号，
// 主键冲突时以当天最大序号重新计算并重试。
func (r *GormOrderRepository) Create(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= r.createAttempts; attempt++ {
		order, err := r.createOnce(ctx, draft, attempt > 1)
		if err == nil {
			logger.Info("order created", zap.String("order_id", order.ID), zap.Int("attempt", attempt))
			return order, nil
		}
		if !isDuplicateKey(err) {
			logger.Error("create order failed", zap.Error(err))
			return nil, writeErr(err)
		}
		// 唯一约束冲突既可能是订单号，也可能是网关订单号；后者重试没有意义
		if r.gatewayOrderTaken(ctx, draft.RazorpayOrderID) {
			logger.Info("gateway order already persisted", zap.String("razorpay_order_id", draft.RazorpayOrderID))
			return nil, ErrGatewayOrderExists
		}
		lastErr = err
		logger.Warn("order id collision, recomputing sequence",
			zap.Int("attempt", attempt), zap.Int("max_attempts", r.createAttempts), zap.Error(err))
	}
	return nil, writeErr(fmt.Errorf("order id collision after %d attempts: %w", r.createAttempts, lastErr))
}

func (r *GormOrderRepository) gatewayOrderTaken(ctx context.Context, gatewayOrderID string) bool {
	if gatewayOrderID == "" {
		return false
	}
	existing, err := r.GetByRazorpayOrderID(ctx, gatewayOrderID)
	return err == nil && existing != nil
}

func (r *GormOrderRepository) createOnce(ctx context.Context, draft model.OrderDraft, recompute bool) (*model.Order, error) {
	now := r.clock()
	var order *model.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := r.nextSequence(tx, now, recompute)
		if err != nil {
			return err
		}
		order = draft.Build(model.FormatOrderID(now, seq), now)
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// nextSequence 计算当天下一个序号
func (r *GormOrderRepository) nextSequence(tx *gorm.DB, now time.Time, recompute bool) (int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var todays int64
	if err := tx.Model(&model.Order{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&todays).Error; err != nil {
		return 0, err
	}
	seq := int(todays)
	if recompute {
		var ids []string
		if err := tx.Model(&model.Order{}).
			Where("id LIKE ?", model.OrderIDPrefix(now)+"%").
			Pluck("id", &ids).Error; err != nil {
			return 0, err
		}
		for _, id := range ids {
			if _, s, ok := model.ParseOrderSeq(id); ok && s > seq {
				seq = s
			}
		}
	}
	return seq + 1, nil
}

// GetByID 根据订单号查询订单
func (r *GormOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	order, err := r.first(ctx, "id = ?", id)
	if err != nil || order != nil {
		return order, err
	}
	// 兼容早期大小写不一致的订单号
	return r.first(ctx, "LOWER(id) = LOWER(?)", id)
}

// GetByRazorpayOrderID 根据网关订单号查询订单
func (r *GormOrderRepository) GetByRazorpayOrderID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, nil
	}
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	return r.first(ctx, "razorpay_order_id = ?", gatewayOrderID)
}

func (r *GormOrderRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &order, nil
}

// List 查询全部订单
func (r *GormOrderRepository) List(ctx context.Context) ([]*model.Order, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	var orders []*model.Order
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, readErr(err)
	}
	return orders, nil
}

// Update 稀疏更新订单
func (r *GormOrderRepository) Update(ctx context.Context, id string, upd model.OrderUpdate) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	var updated *model.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Order
		if err := tx.Where("id = ?", id).First(&cur).Error; err != nil {
			return err
		}

		// updated_at 必须严格递增
		updatedAt := r.clock()
		if !updatedAt.After(cur.UpdatedAt) {
			updatedAt = cur.UpdatedAt.Add(time.Microsecond)
		}
		cols := updateColumns(upd)
		cols["updated_at"] = updatedAt

		if err := tx.Model(&model.Order{}).Where("id = ?", cur.ID).Updates(cols).Error; err != nil {
			return err
		}
		var fresh model.Order
		if err := tx.Where("id = ?", cur.ID).First(&fresh).Error; err != nil {
			return err
		}
		updated = &fresh
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, writeErr(err)
	}
	return updated, nil
}

// updateColumns 将类型化的稀疏更新映射为列
func updateColumns(upd model.OrderUpdate) map[string]interface{} {
	cols := make(map[string]interface{}, 7)
	if upd.PaymentStatus != nil {
		cols["payment_status"] = *upd.PaymentStatus
	}
	if upd.OrderStatus != nil {
		cols["order_status"] = *upd.OrderStatus
	}
	if upd.Delivery != nil {
		cols["delivery"] = datatypes.NewJSONType(*upd.Delivery)
	}
	if upd.Subtotal != nil {
		cols["subtotal"] = *upd.Subtotal
	}
	if upd.Tax != nil {
		cols["tax"] = *upd.Tax
	}
	if upd.Total != nil {
		cols["total"] = *upd.Total
	}
	return cols
}

// Delete 删除订单
func (r *GormOrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.ready(ctx); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&model.Order{})
	if res.Error != nil {
		return false, writeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count 统计订单数量
func (r *GormOrderRepository) Count(ctx context.Context) (int64, error) {
	if err := r.ready(ctx); err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error; err != nil {
		return 0, readErr(err)
	}
	return count, nil
}

// RecentIDs 最近的订单号
func (r *GormOrderRepository) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Order("created_at DESC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, readErr(err)
	}
	return ids, nil
}

// InitSchema 初始化数据库表结构
func (r *GormOrderRepository) InitSchema(ctx context.Context) error {
	return InitSchema(ctx, r.db)
}

// Close 关闭数据库连接
func (r *GormOrderRepository) Close() error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
