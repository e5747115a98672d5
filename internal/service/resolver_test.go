package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
)

func TestResolver_ByInternalAndGatewayID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created, err := repo.Create(ctx, model.OrderDraft{
		Items: vanillaItems(), Delivery: customer(),
		Subtotal: 1000, Tax: 50, Total: 1050,
		PaymentStatus: model.PaymentPaid, OrderStatus: model.OrderPending,
		RazorpayOrderID: "order_gw1",
	})
	require.NoError(t, err)

	r := NewResolver(repo, cache.NewMemoryStore(), fastResolver)
	byID, err := r.Resolve(ctx, created.ID)
	require.NoError(t, err)
	byGateway, err := r.Resolve(ctx, "order_gw1")
	require.NoError(t, err)
	assert.Equal(t, byID, byGateway)

	// 重复读取结果一致
	again, err := r.Resolve(ctx, byID.ID)
	require.NoError(t, err)
	assert.Equal(t, byID, again)
}

func TestResolver_TransientFirst(t *testing.T) {
	repo := newTestRepo(t)
	transient := cache.NewMemoryStore()
	ctx := context.Background()

	order := model.OrderDraft{Items: vanillaItems(), Delivery: customer()}.Build("TEMP-1710412200000", testDay)
	require.NoError(t, transient.Put(ctx, order.ID, order))

	r := NewResolver(repo, transient, fastResolver)
	got, err := r.Resolve(ctx, "TEMP-1710412200000")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = r.Lookup(ctx, "TEMP-1710412200000")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestResolver_NotFoundWithDiagnostics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := repo.Create(ctx, model.OrderDraft{Items: vanillaItems(), Delivery: customer()})
		require.NoError(t, err)
	}

	r := NewResolver(repo, cache.NewMemoryStore(), fastResolver)
	got, err := r.Resolve(ctx, "ORD-20250314-0099")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ORD-20250314-0099", nf.ID)
	assert.EqualValues(t, 2, nf.TotalOrders)
	assert.ElementsMatch(t, []string{"ORD-20250314-0001", "ORD-20250314-0002"}, nf.SampleIDs)
}

func TestResolver_LookupMissReturnsNil(t *testing.T) {
	r := NewResolver(newTestRepo(t), cache.NewMemoryStore(), fastResolver)
	got, err := r.Lookup(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolver_StoreUnavailable(t *testing.T) {
	r := NewResolver(repository.NewOrderRepository(nil), cache.NewMemoryStore(), fastResolver)
	_, err := r.Resolve(context.Background(), "ORD-20250314-0001")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestResolver_EmptyID(t *testing.T) {
	r := NewResolver(newTestRepo(t), nil, fastResolver)
	_, err := r.Resolve(context.Background(), "   ")
	assert.True(t, IsValidation(err))
}

func TestResolver_RespectsCancellation(t *testing.T) {
	cfg := fastResolver
	cfg.Attempts = 100
	r := NewResolver(newTestRepo(t), nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, "ORD-20250314-0001")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
