package model

import "time"

// OutOfStockItem 缺货标记：存在即缺货，删除即恢复
type OutOfStockItem struct {
	ProductID int       `json:"productId" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

func (OutOfStockItem) TableName() string { return "out_of_stock_items" }
