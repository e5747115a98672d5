package service

import (
	"context"
	"time"
)

// linearBackOff 第 n 次等待 step×n，不超过 max；实现 backoff.BackOff
type linearBackOff struct {
	step time.Duration
	max  time.Duration
	n    int
}

func newLinearBackOff(step, max time.Duration) *linearBackOff {
	return &linearBackOff{step: step, max: max}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	d := b.step * time.Duration(b.n)
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d
}

func (b *linearBackOff) Reset() { b.n = 0 }

// sleepCtx 可被取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
