package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/catalog"
	"github.com/d60-Lab/cakeshop/internal/repository"
)

func TestStockService(t *testing.T) {
	cat := catalog.New([]config.Product{
		{ID: 1, Name: "Vanilla", Prices: map[string]int{"1kg": 500}},
		{ID: 2, Name: "Red Velvet", Prices: map[string]int{"1kg": 1200}},
	})
	svc := NewStockService(repository.NewStockRepository(setupTestDB(t)), cat)
	ctx := context.Background()

	ids, err := svc.ListOutOfStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{}, ids)

	require.NoError(t, svc.SetOutOfStock(ctx, 2, true))
	assert.True(t, IsValidation(svc.SetOutOfStock(ctx, 9, true)))
	assert.True(t, IsValidation(svc.SetOutOfStock(ctx, 0, true)))

	ids, err = svc.ListOutOfStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)

	views := svc.Products(ctx)
	require.Len(t, views, 2)
	assert.False(t, views[0].OutOfStock)
	assert.True(t, views[1].OutOfStock)

	require.NoError(t, svc.SetOutOfStock(ctx, 2, false))
	views = svc.Products(ctx)
	assert.False(t, views[1].OutOfStock)
}

func TestStockService_NoCatalogAcceptsAnyID(t *testing.T) {
	svc := NewStockService(repository.NewStockRepository(setupTestDB(t)), nil)
	require.NoError(t, svc.SetOutOfStock(context.Background(), 42, true))
	assert.Empty(t, svc.Products(context.Background()))
}

func TestStockService_StoreUnavailable(t *testing.T) {
	svc := NewStockService(repository.NewStockRepository(nil), nil)
	_, err := svc.ListOutOfStock(context.Background())
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
