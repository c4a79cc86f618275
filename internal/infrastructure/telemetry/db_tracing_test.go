package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRegisterDBTracing(t *testing.T) {
	sr := setupTestTracer(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, telemetry.RegisterDBTracing(db, time.Second))

	ctx, span := telemetry.StartSpan(context.Background(), "test.parent")
	require.NoError(t, db.WithContext(ctx).Exec("CREATE TABLE careers (id TEXT PRIMARY KEY)").Error)
	var n int64
	require.NoError(t, db.WithContext(ctx).Table("careers").Count(&n).Error)
	span.End()

	assert.Zero(t, n)
	assert.Greater(t, len(sr.Ended()), 1)
}

func TestRegisterDBTracing_Twice(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, telemetry.RegisterDBTracing(db, time.Second))

	assert.Error(t, telemetry.RegisterDBTracing(db, time.Second))
}
