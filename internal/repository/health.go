package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/cakeshop/pkg/logger"
)

// HealthStatus 一次连通性探测的结果
type HealthStatus struct {
	Connected bool          `json:"connected"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latencyNs"`
}

// ConnectivityGuard 探测订单存储是否可达
type ConnectivityGuard interface {
	Probe(ctx context.Context) HealthStatus
}

// DBGuard 通过执行一条平凡查询探测数据库
type DBGuard struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewDBGuard(db *gorm.DB, timeout time.Duration) *DBGuard {
	return &DBGuard{db: db, timeout: timeout}
}

// Probe 从不 panic、不返回 error；探测失败体现在 HealthStatus 中
func (g *DBGuard) Probe(ctx context.Context) (status HealthStatus) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			status = HealthStatus{Connected: false, Error: fmt.Sprintf("probe panic: %v", r)}
		}
		status.Latency = time.Since(start)
		if !status.Connected {
			logger.Warn("order store probe failed", zap.String("error", status.Error), zap.Duration("latency", status.Latency))
		}
	}()

	if g.db == nil {
		return HealthStatus{Error: ErrStoreUnavailable.Error()}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var one int
	if err := g.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return HealthStatus{Error: err.Error()}
	}
	return HealthStatus{Connected: true}
}
