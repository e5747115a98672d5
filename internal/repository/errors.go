package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable 未配置数据库或数据库不可达，读路径上可重试
	ErrStoreUnavailable = errors.New("order store unavailable")
	// ErrWriteFailed 写事务中止（主键冲突、约束违反等）
	ErrWriteFailed = errors.New("order write failed")
	// ErrGatewayOrderExists 该网关订单号已有订单，调用方应读取已有记录
	ErrGatewayOrderExists = errors.New("order for gateway order id already exists")
)

// isDuplicateKey 判断是否为主键/唯一键冲突
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// readErr 读失败统一归类为存储不可用，同时保留原始错误
func readErr(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

// writeErr 写失败归类为 ErrWriteFailed
func writeErr(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrWriteFailed) {
		return err
	}
	return errors.Join(ErrWriteFailed, err)
}
