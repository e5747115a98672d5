package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBGuard_Probe(t *testing.T) {
	db := setupTestDB(t)
	status := NewDBGuard(db, time.Second).Probe(context.Background())
	assert.True(t, status.Connected)
	assert.Empty(t, status.Error)
}

func TestDBGuard_NilDB(t *testing.T) {
	status := NewDBGuard(nil, time.Second).Probe(context.Background())
	assert.False(t, status.Connected)
	assert.Contains(t, status.Error, "unavailable")
}

func TestDBGuard_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status := NewDBGuard(db, time.Second).Probe(context.Background())
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.Error)
}
