package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/cache"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

const maxTransientReserve = 1000

// OrderNotifier 订单通知；实现必须是非阻塞的，失败不得影响调用方
type OrderNotifier interface {
	NotifyOrder(order *model.Order)
}

// ReconcileRequest 网关支付成功回调后的对账请求
type ReconcileRequest struct {
	RazorpayOrderID   string           `json:"razorpayOrderId"`
	RazorpayPaymentID string           `json:"razorpayPaymentId"`
	Amount            *int64           `json:"amount,omitempty"`
	Subtotal          *int64           `json:"subtotal,omitempty"`
	Tax               *int64           `json:"tax,omitempty"`
	Items             []model.LineItem `json:"items"`
	Customer          model.Delivery   `json:"customer"`
}

// ReconcileResult 对账结果。Durable 为 false 表示订单仅存在于兜底存储
type ReconcileResult struct {
	Order    *model.Order `json:"order"`
	Durable  bool         `json:"persisted"`
	Verified bool         `json:"verified"`
	Replayed bool         `json:"replayed"`
}

// VerifyConfig 创建后可见性校验参数
type VerifyConfig struct {
	SettleDelay time.Duration
	Attempts    int
	Step        time.Duration
	MaxDelay    time.Duration
}

// ReconcileService 支付成功后的订单落库编排
type ReconcileService struct {
	orders    repository.OrderRepository
	guard     repository.ConnectivityGuard
	transient cache.TransientStore
	resolver  *Resolver
	notifier  OrderNotifier
	pricer    Pricer
	verify    VerifyConfig
	now       func() time.Time
}

func NewReconcileService(
	orders repository.OrderRepository,
	guard repository.ConnectivityGuard,
	transient cache.TransientStore,
	resolver *Resolver,
	notifier OrderNotifier,
	pricer Pricer,
	verify VerifyConfig,
) *ReconcileService {
	if verify.Attempts <= 0 {
		verify.Attempts = 8
	}
	if verify.Step <= 0 {
		verify.Step = 200 * time.Millisecond
	}
	return &ReconcileService{
		orders:    orders,
		guard:     guard,
		transient: transient,
		resolver:  resolver,
		notifier:  notifier,
		pricer:    pricer,
		verify:    verify,
		now:       time.Now,
	}
}

func validateReconcile(req *ReconcileRequest) error {
	var errs ValidationErrors
	req.RazorpayOrderID = strings.TrimSpace(req.RazorpayOrderID)
	req.RazorpayPaymentID = strings.TrimSpace(req.RazorpayPaymentID)
	if req.RazorpayOrderID == "" {
		errs = append(errs, invalid("razorpayOrderId", "required"))
	}
	if req.RazorpayPaymentID == "" {
		errs = append(errs, invalid("razorpayPaymentId", "required"))
	}
	errs = append(errs, validateItems(req.Items)...)
	errs = append(errs, validateDelivery("customer", req.Customer)...)
	return errs.orNil()
}

// Reconcile 校验 -> 幂等检查 -> 落库（失败则写入兜底存储）-> 可见性校验 -> 异步通知。
// 只有校验错误会返回 error；存储故障时降级为兜底订单。
func (s *ReconcileService) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	if err := validateReconcile(&req); err != nil {
		return nil, err
	}
	log := logger.L().With(zap.String("razorpay_order_id", req.RazorpayOrderID))

	// 网关回调重放：同一网关订单只落一次
	if existing := s.findExisting(ctx, req.RazorpayOrderID); existing != nil {
		log.Info("reconcile replay, returning existing order", zap.String("order_id", existing.ID))
		return &ReconcileResult{Order: existing, Durable: !existing.IsTransient(), Verified: true, Replayed: true}, nil
	}

	totals := s.pricer.Totals(req.Items, req.Subtotal, req.Tax, req.Amount)
	if totals.Mismatch() {
		log.Warn("caller subtotal differs from items",
			zap.Int64("subtotal", totals.Subtotal), zap.Int64("computed", totals.Computed))
	}
	draft := model.OrderDraft{
		Items:             req.Items,
		Delivery:          req.Customer,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Total:             totals.Total,
		PaymentStatus:     model.PaymentPaid,
		OrderStatus:       model.OrderPending,
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
	}

	result := &ReconcileResult{}
	order, err := s.persist(ctx, draft)
	if errors.Is(err, repository.ErrGatewayOrderExists) {
		// 并发回调：另一请求已先落库
		if existing := s.findExisting(ctx, req.RazorpayOrderID); existing != nil {
			log.Info("concurrent reconcile lost race, returning existing order", zap.String("order_id", existing.ID))
			return &ReconcileResult{Order: existing, Durable: !existing.IsTransient(), Verified: true, Replayed: true}, nil
		}
	}
	if err != nil {
		log.Error("durable order write failed, falling back to transient store", zap.Error(err))
		order = s.fallback(ctx, draft)
	} else {
		result.Durable = true
	}
	result.Order = order
	log = log.With(zap.String("order_id", order.ID), zap.Bool("durable", result.Durable))

	result.Verified = s.verifyVisible(ctx, order.ID)
	if !result.Verified {
		log.Error("order not visible after creation", zap.Int("attempts", s.verify.Attempts))
	} else {
		log.Info("order reconciled")
	}

	if s.notifier != nil {
		s.notifier.NotifyOrder(order)
	}
	return result, nil
}

// findExisting 先查数据库，再查兜底存储；查询失败视为不存在
func (s *ReconcileService) findExisting(ctx context.Context, gatewayOrderID string) *model.Order {
	if order, err := s.orders.GetByRazorpayOrderID(ctx, gatewayOrderID); err == nil && order != nil {
		return order
	}
	if s.transient == nil {
		return nil
	}
	all, err := s.transient.List(ctx)
	if err != nil {
		return nil
	}
	for _, o := range all {
		if o.GatewayOrderID() == gatewayOrderID {
			return o
		}
	}
	return nil
}

// persist 探测不可用时直接返回，不再尝试写库
func (s *ReconcileService) persist(ctx context.Context, draft model.OrderDraft) (*model.Order, error) {
	if s.guard != nil {
		if status := s.guard.Probe(ctx); !status.Connected {
			return nil, errors.Join(repository.ErrStoreUnavailable, errors.New(status.Error))
		}
	}
	return s.orders.Create(ctx, draft)
}

// fallback 生成 TEMP 订单并写入兜底存储。写入失败只记录日志，顾客流程照常继续
func (s *ReconcileService) fallback(ctx context.Context, draft model.OrderDraft) *model.Order {
	now := s.now().Truncate(time.Microsecond)
	id := model.NewTransientID(now)
	if s.transient == nil {
		logger.Error("no transient store configured, order kept in response only", zap.String("order_id", id))
		return draft.Build(id, now)
	}
	// 同一毫秒内的兜底订单顺延时间戳；占位与写入是一次原子操作
	for i := 0; i < maxTransientReserve; i++ {
		order := draft.Build(id, now)
		ok, err := s.transient.PutIfAbsent(ctx, id, order)
		if err != nil {
			logger.Error("transient store write failed", zap.String("order_id", id), zap.Error(err))
			return order
		}
		if ok {
			return order
		}
		now = now.Add(time.Millisecond)
		id = model.NewTransientID(now)
	}
	logger.Error("no free transient id", zap.String("order_id", id), zap.Int("tries", maxTransientReserve))
	return draft.Build(id, now)
}

// verifyVisible 等待落库结果可读；失败只影响日志
func (s *ReconcileService) verifyVisible(ctx context.Context, id string) bool {
	if err := sleepCtx(ctx, s.verify.SettleDelay); err != nil {
		return false
	}
	_, err := backoff.Retry(ctx, func() (*model.Order, error) {
		order, err := s.resolver.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, errNotYetVisible
		}
		return order, nil
	},
		backoff.WithBackOff(newLinearBackOff(s.verify.Step, s.verify.MaxDelay)),
		backoff.WithMaxTries(uint(s.verify.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("order verification retry", zap.String("order_id", id), zap.Duration("delay", next), zap.Error(err))
		}),
	)
	return err == nil
}
