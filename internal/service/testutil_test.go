package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
)

var testDay = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRepo(t *testing.T) *repository.GormOrderRepository {
	t.Helper()
	return repository.NewOrderRepository(setupTestDB(t),
		repository.WithClock(func() time.Time { return testDay }),
		repository.WithLocation(time.UTC))
}

var fastResolver = ResolverConfig{Attempts: 3, Step: time.Millisecond, MaxDelay: 2 * time.Millisecond, DiagnosticSample: 5}

var fastVerify = VerifyConfig{SettleDelay: time.Millisecond, Attempts: 3, Step: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// fakeGuard 固定返回探测结果
type fakeGuard struct {
	mu        sync.Mutex
	connected bool
}

func (g *fakeGuard) Probe(context.Context) repository.HealthStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected {
		return repository.HealthStatus{Connected: true}
	}
	return repository.HealthStatus{Error: "connection refused"}
}

func (g *fakeGuard) set(connected bool) {
	g.mu.Lock()
	g.connected = connected
	g.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*model.Order
}

func (n *recordingNotifier) NotifyOrder(order *model.Order) {
	n.mu.Lock()
	n.orders = append(n.orders, order)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

func mustPricer(t *testing.T) Pricer {
	t.Helper()
	p, err := NewPricer("0.05")
	require.NoError(t, err)
	return p
}

func vanillaItems() []model.LineItem {
	return []model.LineItem{{CakeID: 1, CakeName: "Vanilla", Weight: "1kg", Quantity: 2, PricePerUnit: 500}}
}

func customer() model.Delivery {
	return model.Delivery{Name: "Meera", Phone: "9812345678", Address: "Koregaon Park, Pune", DeliveryDate: "2025-03-15", TimeWindow: "10-12"}
}

type reconcileFixture struct {
	repo      repository.OrderRepository
	guard     *fakeGuard
	transient *cache.MemoryStore
	resolver  *Resolver
	notifier  *recordingNotifier
	svc       *ReconcileService
}

func newReconcileFixture(t *testing.T, repo repository.OrderRepository) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		repo:      repo,
		guard:     &fakeGuard{connected: true},
		transient: cache.NewMemoryStore(),
		notifier:  &recordingNotifier{},
	}
	f.resolver = NewResolver(repo, f.transient, fastResolver)
	f.svc = NewReconcileService(repo, f.guard, f.transient, f.resolver, f.notifier, mustPricer(t), fastVerify)
	f.svc.now = func() time.Time { return testDay }
	return f
}

func reconcileRequest(gatewayOrderID string) ReconcileRequest {
	return ReconcileRequest{
		RazorpayOrderID:   gatewayOrderID,
		RazorpayPaymentID: "pay_" + gatewayOrderID,
		Items:             vanillaItems(),
		Customer:          customer(),
	}
}
