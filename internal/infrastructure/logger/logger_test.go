package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("development config", func(t *testing.T) {
		l, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("production config skips debug", func(t *testing.T) {
		l, err := New(ProductionConfig())
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("file output", func(t *testing.T) {
		cfg := ProductionConfig()
		cfg.Output = filepath.Join(t.TempDir(), "app.log")
		l, err := New(cfg)
		require.NoError(t, err)
		l.Info("hello")
		require.NoError(t, l.Sync())
		assert.FileExists(t, cfg.Output)
	})

	t.Run("unwritable file", func(t *testing.T) {
		cfg := ProductionConfig()
		cfg.Output = filepath.Join(t.TempDir(), "missing", "app.log")
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("unknown level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Level = "loud"
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestNewForEnvironment(t *testing.T) {
	l, err := NewForEnvironment("production")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewForEnvironment("development")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
