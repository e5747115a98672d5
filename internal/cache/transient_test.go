package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/model"
)

func sampleOrder(id string) *model.Order {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	return model.OrderDraft{
		Items:           []model.LineItem{{CakeID: 2, CakeName: "Red Velvet", Weight: "0.5kg", Quantity: 1, PricePerUnit: 650}},
		Delivery:        model.Delivery{Name: "Ravi", Phone: "9000000000", Address: "Baner, Pune"},
		Subtotal:        650,
		Tax:             33,
		Total:           683,
		PaymentStatus:   model.PaymentPaid,
		OrderStatus:     model.OrderPending,
		RazorpayOrderID: "order_" + id,
	}.Build(id, now)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test"), mr
}

func backends(t *testing.T) map[string]TransientStore {
	rs, _ := newRedisStore(t)
	return map[string]TransientStore{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestTransientStore_PutGetDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			order := sampleOrder("TEMP-1710410400000")

			got, err := store.Get(ctx, order.ID)
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, store.Put(ctx, order.ID, order))
			got, err = store.Get(ctx, order.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, order.ID, got.ID)
			assert.Equal(t, order.LineItems(), got.LineItems())
			assert.Equal(t, order.DeliveryDetails(), got.DeliveryDetails())
			assert.Equal(t, "order_TEMP-1710410400000", got.GatewayOrderID())
			assert.True(t, got.CreatedAt.Equal(order.CreatedAt))

			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)

			require.NoError(t, store.Delete(ctx, order.ID))
			got, err = store.Get(ctx, order.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestTransientStore_PutIfAbsentSingleWinner(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 32
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins []string
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					order := sampleOrder("TEMP-1710410400000")
					order.RazorpayPaymentID = ptr(fmt.Sprintf("pay_%d", i))
					ok, err := store.PutIfAbsent(ctx, order.ID, order)
					if !assert.NoError(t, err) || !ok {
						return
					}
					mu.Lock()
					wins = append(wins, *order.RazorpayPaymentID)
					mu.Unlock()
				}(i)
			}
			wg.Wait()
			require.Len(t, wins, 1)

			// 先写入者保留，后来者不覆盖
			got, err := store.Get(ctx, "TEMP-1710410400000")
			require.NoError(t, err)
			require.NotNil(t, got)
			require.NotNil(t, got.RazorpayPaymentID)
			assert.Equal(t, wins[0], *got.RazorpayPaymentID)

			ok, err := store.PutIfAbsent(ctx, "TEMP-1710410400001", sampleOrder("TEMP-1710410400001"))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func ptr(s string) *string { return &s }

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	order := sampleOrder("TEMP-1")
	require.NoError(t, store.Put(ctx, order.ID, order))

	order.OrderStatus = model.OrderDelivered
	got, _ := store.Get(ctx, "TEMP-1")
	assert.Equal(t, model.OrderPending, got.OrderStatus)

	got.OrderStatus = model.OrderDelivered
	again, _ := store.Get(ctx, "TEMP-1")
	assert.Equal(t, model.OrderPending, again.OrderStatus)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("TEMP-%d", i)
			_ = store.Put(ctx, id, sampleOrder(id))
			_, _ = store.Get(ctx, id)
			_, _ = store.List(ctx)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}

func TestRedisStore_SkipsCorruptEntries(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "TEMP-2", sampleOrder("TEMP-2")))
	mr.HSet("test:orders", "TEMP-bad", "{not json")

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "TEMP-2")
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	_, err := store.Get(context.Background(), "TEMP-3")
	assert.Error(t, err)
	ok, err := store.PutIfAbsent(context.Background(), "TEMP-3", sampleOrder("TEMP-3"))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	s, err := New(config.TransientConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(config.TransientConfig{Backend: "redis"}, nil)
	assert.Error(t, err)

	_, err = New(config.TransientConfig{Backend: "etcd"}, nil)
	assert.Error(t, err)
}
