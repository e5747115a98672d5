// Package notify 订单通知：异步队列 + 按渠道重试，失败只记录日志，不影响下单流程。
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// ErrNotificationFailed 重试耗尽仍未送达
var ErrNotificationFailed = errors.New("notification failed")

type notifyJob struct {
	order *model.Order
	enqAt time.Time
}

// Options 队列与重试参数
type Options struct {
	Workers   int
	QueueSize int
	Attempts  int
	Timeout   time.Duration // 单次发送超时
}

// Dispatcher 本地异步通知执行器
type Dispatcher struct {
	channels []Channel
	opts     Options
	ch       chan notifyJob
	wg       sync.WaitGroup
	backoff  func() backoff.BackOff
}

func NewDispatcher(opts Options, channels ...Channel) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		channels: channels,
		opts:     opts,
		ch:       make(chan notifyJob, opts.QueueSize),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Start 启动 worker；返回的停止函数等待队列排空或 ctx 到期
func (d *Dispatcher) Start() func(context.Context) error {
	stopCh := make(chan struct{})
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case job := <-d.ch:
					d.handle(job)
				case <-stopCh:
					// 退出前处理完已入队的通知
					for {
						select {
						case job := <-d.ch:
							d.handle(job)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("notification queue not drained (%d pending): %w", len(d.ch), ctx.Err())
		}
	}
}

// NotifyOrder 入队；队列满时丢弃并告警，从不阻塞调用方
func (d *Dispatcher) NotifyOrder(order *model.Order) {
	if order == nil || len(d.channels) == 0 {
		return
	}
	select {
	case d.ch <- notifyJob{order: order, enqAt: time.Now()}:
	default:
		logger.Warn("notify queue full, drop order notification", zap.String("order_id", order.ID))
	}
}

// handle 逐个渠道发送，记录入队到处理完成的耗时
func (d *Dispatcher) handle(job notifyJob) {
	sent := 0
	for _, c := range d.channels {
		if d.deliver(c, job.order) {
			sent++
		}
	}
	logger.Info("order notifications handled",
		zap.String("order_id", job.order.ID),
		zap.Int("sent", sent),
		zap.Int("channels", len(d.channels)),
		zap.Duration("latency", time.Since(job.enqAt)))
}

// deliver 返回该渠道是否送达
func (d *Dispatcher) deliver(c Channel, order *model.Order) bool {
	log := logger.L().With(zap.String("order_id", order.ID), zap.String("channel", c.Name()))

	id, err := backoff.Retry(context.Background(), func() (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		defer cancel()
		id, err := c.Deliver(ctx, order)
		if errors.Is(err, ErrNotConfigured) {
			return "", backoff.Permanent(err)
		}
		return id, err
	},
		backoff.WithBackOff(d.backoff()),
		backoff.WithMaxTries(uint(d.opts.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("notification attempt failed", zap.Duration("retry_in", next), zap.Error(err))
		}),
	)
	switch {
	case err == nil:
		log.Info("notification sent", zap.String("message_id", id))
		return true
	case errors.Is(err, ErrNotConfigured):
		log.Warn("notification channel not configured, skipped")
	default:
		d.deadLetter(c, order, err)
	}
	return false
}

// deadLetter 重试耗尽：记录并上报 Sentry
func (d *Dispatcher) deadLetter(c Channel, order *model.Order, err error) {
	err = fmt.Errorf("%w: %s for order %s: %w", ErrNotificationFailed, c.Name(), order.ID, err)
	logger.Error("notification dead-lettered",
		zap.String("order_id", order.ID), zap.String("channel", c.Name()), zap.Error(err))
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("channel", c.Name())
		scope.SetTag("order_id", order.ID)
		sentry.CaptureException(err)
	})
}

// QueueLen 当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }
