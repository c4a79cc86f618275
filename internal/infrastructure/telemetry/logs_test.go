package telemetry_test

import (
	"context"
	"testing"

	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggerProvider_Disabled(t *testing.T) {
	base := zap.NewNop()

	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.Config{ServiceName: "test"}, false, base)
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}
