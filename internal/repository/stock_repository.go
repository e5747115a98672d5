package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// GormStockRepository 缺货标记
type GormStockRepository struct {
	db     *gorm.DB
	schema schemaGuard
}

func NewStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// SetOutOfStock 标记/取消缺货，重复标记只刷新 updated_at
func (r *GormStockRepository) SetOutOfStock(ctx context.Context, productID int, outOfStock bool) error {
	if err := r.schema.ensure(ctx, r.db); err != nil {
		return err
	}

	db := r.db.WithContext(ctx)
	if !outOfStock {
		if err := db.Where("product_id = ?", productID).Delete(&model.OutOfStockItem{}).Error; err != nil {
			return writeErr(err)
		}
		return nil
	}

	now := time.Now().Truncate(time.Microsecond)
	item := model.OutOfStockItem{ProductID: productID, CreatedAt: now, UpdatedAt: now}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ListOutOfStock 返回缺货商品 id（升序）
func (r *GormStockRepository) ListOutOfStock(ctx context.Context) ([]int, error) {
	if err := r.schema.ensure(ctx, r.db); err != nil {
		return nil, err
	}
	var ids []int
	if err := r.db.WithContext(ctx).Model(&model.OutOfStockItem{}).Pluck("product_id", &ids).Error; err != nil {
		return nil, readErr(err)
	}
	sort.Ints(ids)
	return ids, nil
}
