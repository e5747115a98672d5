package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// InitSchema 初始化数据库表结构（幂等）
func InitSchema(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrStoreUnavailable
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.Order{}, &model.OutOfStockItem{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// schemaGuard 首次使用前自动建表；失败时下次调用会重试
type schemaGuard struct {
	ok atomic.Bool
	mu sync.Mutex
}

func (g *schemaGuard) ensure(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrStoreUnavailable
	}
	if g.ok.Load() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ok.Load() {
		return nil
	}
	if err := InitSchema(ctx, db); err != nil {
		return readErr(err)
	}
	g.ok.Store(true)
	return nil
}
