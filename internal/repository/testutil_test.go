package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/cakeshop/internal/model"
)

var testDay = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	// 内存库每个连接独立，固定单连接
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleDraft() model.OrderDraft {
	return model.OrderDraft{
		Items: []model.LineItem{
			{CakeID: 1, CakeName: "Chocolate Truffle", Weight: "1kg", Quantity: 1, PricePerUnit: 899},
		},
		Delivery: model.Delivery{
			Name:    "Asha",
			Phone:   "9876543210",
			Address: "12 MG Road, Pune",
		},
		Subtotal:      899,
		Tax:           45,
		Total:         944,
		PaymentStatus: model.PaymentPaid,
		OrderStatus:   model.OrderPending,
	}
}
