package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/cakeshop/internal/model"
)

func newTestOrderRepo(t *testing.T, now time.Time) *GormOrderRepository {
	t.Helper()
	return NewOrderRepository(setupTestDB(t), WithClock(fixedClock(now)), WithLocation(time.UTC))
}

func TestCreate_SequentialIDs(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		order, err := repo.Create(ctx, sampleDraft())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ORD-20250314-%04d", i), order.ID)
		assert.True(t, order.CreatedAt.Equal(order.UpdatedAt))
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestCreate_SequenceRestartsEachDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day1 := NewOrderRepository(db, WithClock(fixedClock(testDay)), WithLocation(time.UTC))
	_, err := day1.Create(ctx, sampleDraft())
	require.NoError(t, err)
	_, err = day1.Create(ctx, sampleDraft())
	require.NoError(t, err)

	day2 := NewOrderRepository(db, WithClock(fixedClock(testDay.AddDate(0, 0, 1))), WithLocation(time.UTC))
	order, err := day2.Create(ctx, sampleDraft())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250315-0001", order.ID)
}

func TestCreate_PersistsFields(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	draft := sampleDraft()
	draft.RazorpayOrderID = "order_abc"
	draft.RazorpayPaymentID = "pay_xyz"
	created, err := repo.Create(ctx, draft)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, draft.Items, got.LineItems())
	assert.Equal(t, draft.Delivery, got.DeliveryDetails())
	assert.EqualValues(t, 944, got.Total)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "order_abc", got.GatewayOrderID())
	require.NotNil(t, got.RazorpayPaymentID)
	assert.Equal(t, "pay_xyz", *got.RazorpayPaymentID)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	// 订单号是今天的 0001，但 created_at 落在昨天：按天计数得 0，首次生成必然冲突
	stale := sampleDraft().Build("ORD-20250314-0001", testDay.AddDate(0, 0, -1))
	require.NoError(t, db.Create(stale).Error)

	repo := NewOrderRepository(db, WithClock(fixedClock(testDay)), WithLocation(time.UTC))
	order, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250314-0002", order.ID)
}

func TestCreate_GivesUpAfterMaxAttempts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	stale := sampleDraft().Build("ORD-20250314-0001", testDay.AddDate(0, 0, -1))
	require.NoError(t, db.Create(stale).Error)

	// 只允许一次尝试：冲突后不再重算
	repo := NewOrderRepository(db, WithClock(fixedClock(testDay)), WithLocation(time.UTC), WithCreateAttempts(1))
	order, err := repo.Create(ctx, sampleDraft())
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

// 测试库固定单连接，这里的并发调用实际被串行执行
func TestCreate_SerializedCallersGetDistinctIDs(t *testing.T) {
	repo := NewOrderRepository(setupTestDB(t), WithClock(fixedClock(testDay)), WithLocation(time.UTC))
	ctx := context.Background()

	const n = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := repo.Create(ctx, sampleDraft())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[order.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, n)
}

func TestCreate_RecoversFromStaleDailyCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	// 另一个实例已提交今天的 0001
	rival := sampleDraft().Build("ORD-20250314-0001", testDay.Add(-time.Minute))
	require.NoError(t, db.Create(rival).Error)

	// 让第一次按天计数少算一单，相当于计数发生在对方提交之前
	var stale atomic.Int32
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:stale_count", func(tx *gorm.DB) {
		if tx.Statement.Table != "orders" {
			return
		}
		if n, ok := tx.Statement.Dest.(*int64); ok && stale.CompareAndSwap(0, 1) {
			*n--
		}
	}))

	repo := NewOrderRepository(db, WithClock(fixedClock(testDay)), WithLocation(time.UTC))
	order, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stale.Load())
	assert.Equal(t, "ORD-20250314-0002", order.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCreate_DuplicateGatewayOrder(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	draft := sampleDraft()
	draft.RazorpayOrderID = "order_dup"
	first, err := repo.Create(ctx, draft)
	require.NoError(t, err)

	second, err := repo.Create(ctx, draft)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrGatewayOrderExists)
	assert.NotErrorIs(t, err, ErrWriteFailed)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.GetByRazorpayOrderID(ctx, "order_dup")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	// 没有网关订单号的订单不受该唯一约束限制
	_, err = repo.Create(ctx, sampleDraft())
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleDraft())
	require.NoError(t, err)
}

func TestGetByID(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "  "+created.ID+" ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	got, err = repo.GetByID(ctx, "ord-20250314-0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	got, err = repo.GetByID(ctx, "ORD-20250314-9999")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByRazorpayOrderID(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	draft := sampleDraft()
	draft.RazorpayOrderID = "order_123"
	created, err := repo.Create(ctx, draft)
	require.NoError(t, err)

	got, err := repo.GetByRazorpayOrderID(ctx, "order_123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	got, err = repo.GetByRazorpayOrderID(ctx, "order_missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestList_OrderedByCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	clock := testDay
	repo := NewOrderRepository(db, WithClock(func() time.Time { return clock }), WithLocation(time.UTC))
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, sampleDraft())
		require.NoError(t, err)
		clock = clock.Add(time.Minute)
	}

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for i := 1; i < len(orders); i++ {
		assert.True(t, orders[i].CreatedAt.After(orders[i-1].CreatedAt))
	}

	ids, err := repo.RecentIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-20250314-0003", "ORD-20250314-0002"}, ids)
}

func TestUpdate_Sparse(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)

	status := model.OrderPreparing
	updated, err := repo.Update(ctx, created.ID, model.OrderUpdate{OrderStatus: &status})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, model.OrderPreparing, updated.OrderStatus)
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
	assert.EqualValues(t, 944, updated.Total)
	assert.Equal(t, created.DeliveryDetails(), updated.DeliveryDetails())
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	// 时钟固定，updated_at 仍需严格递增
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	again, err := repo.Update(ctx, created.ID, model.OrderUpdate{OrderStatus: &status})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))
}

func TestUpdate_DeliveryAndTotals(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)

	delivery := created.DeliveryDetails()
	delivery.Address = "44 FC Road, Pune"
	total := int64(1000)
	updated, err := repo.Update(ctx, created.ID, model.OrderUpdate{Delivery: &delivery, Total: &total})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "44 FC Road, Pune", updated.DeliveryDetails().Address)
	assert.EqualValues(t, 1000, updated.Total)
	assert.EqualValues(t, 899, updated.Subtotal)
}

func TestUpdate_Missing(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	status := model.OrderDelivered
	updated, err := repo.Update(context.Background(), "ORD-20250314-0042", model.OrderUpdate{OrderStatus: &status})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestDelete(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestNilDB_StoreUnavailable(t *testing.T) {
	repo := NewOrderRepository(nil)
	ctx := context.Background()

	_, err := repo.Create(ctx, sampleDraft())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = repo.GetByID(ctx, "ORD-20250314-0001")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = repo.Update(ctx, "ORD-20250314-0001", model.OrderUpdate{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.NoError(t, repo.Close())
}

func TestReadAfterClose_StoreUnavailable(t *testing.T) {
	repo := newTestOrderRepo(t, testDay)
	ctx := context.Background()
	_, err := repo.Create(ctx, sampleDraft())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.GetByID(ctx, "ORD-20250314-0001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, isDuplicateKey(nil))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: orders.id")))
	assert.True(t, isDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "orders_pkey"`)))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
}
