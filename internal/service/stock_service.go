package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/catalog"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// ProductView 商品及其库存状态
type ProductView struct {
	config.Product
	OutOfStock bool `json:"outOfStock"`
}

type StockService struct {
	stock   repository.StockRepository
	catalog *catalog.Catalog
}

func NewStockService(stock repository.StockRepository, cat *catalog.Catalog) *StockService {
	if cat == nil {
		cat = catalog.New(nil)
	}
	return &StockService{stock: stock, catalog: cat}
}

// SetOutOfStock 配置了商品目录时拒绝未知商品
func (s *StockService) SetOutOfStock(ctx context.Context, productID int, outOfStock bool) error {
	if productID <= 0 {
		return invalid("productId", "must be greater than 0")
	}
	if !s.catalog.Empty() {
		if _, ok := s.catalog.Lookup(productID); !ok {
			return invalid("productId", "unknown product")
		}
	}
	if err := s.stock.SetOutOfStock(ctx, productID, outOfStock); err != nil {
		return err
	}
	logger.Info("stock updated", zap.Int("product_id", productID), zap.Bool("out_of_stock", outOfStock))
	return nil
}

func (s *StockService) ListOutOfStock(ctx context.Context) ([]int, error) {
	ids, err := s.stock.ListOutOfStock(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

// Products 商品目录合并缺货标记；库存查询失败时全部按有货展示
func (s *StockService) Products(ctx context.Context) []ProductView {
	out := make(map[int]bool)
	if ids, err := s.stock.ListOutOfStock(ctx); err != nil {
		logger.Warn("list out of stock failed, assuming all available", zap.Error(err))
	} else {
		for _, id := range ids {
			out[id] = true
		}
	}

	products := s.catalog.Products()
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = ProductView{Product: p, OutOfStock: out[p.ID]}
	}
	return views
}
