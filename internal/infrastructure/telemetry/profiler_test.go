package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProfileTypes(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		types, err := ParseProfileTypes(nil)
		require.NoError(t, err)
		assert.Len(t, types, len(DefaultProfileTypes))
		assert.Equal(t, pyroscope.ProfileCPU, types[0])
	})

	t.Run("normalizes and dedupes", func(t *testing.T) {
		types, err := ParseProfileTypes([]string{" CPU", "cpu", "mutex_count"})
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexCount}, types)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParseProfileTypes([]string{"heap"})
		assert.ErrorContains(t, err, `unknown profile type "heap"`)
	})
}

func TestNewProfiler(t *testing.T) {
	log := zap.NewNop()

	p, err := NewProfiler(ProfilerConfig{}, log)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "schoolpay"}, log)
	assert.ErrorContains(t, err, "server address is required")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, log)
	assert.ErrorContains(t, err, "application name is required")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://pyroscope:4040",
		ApplicationName: "schoolpay",
		ProfileTypes:    []string{"bogus"},
	}, log)
	assert.Error(t, err)
}

func TestWithProfilingLabels(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelRoute:  "/api/v1/concepts/:id",
		ProfilingLabelMethod: "GET",
		"empty":              "",
	}, func(ctx context.Context) {
		called = true
		route, ok := pprof.Label(ctx, ProfilingLabelRoute)
		assert.True(t, ok)
		assert.Equal(t, "/api/v1/concepts/:id", route)
		_, ok = pprof.Label(ctx, "empty")
		assert.False(t, ok)
	})
	assert.True(t, called)

	called = false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestEnableSpanProfiles_RequiresBothProviders(t *testing.T) {
	log := zap.NewNop()
	profiler, err := NewProfiler(ProfilerConfig{}, log)
	require.NoError(t, err)

	tp, err := NewTracerProvider(context.Background(), Config{ServiceName: "test"}, log)
	require.NoError(t, err)

	assert.False(t, tp.EnableSpanProfiles(profiler, log))
	assert.False(t, tp.EnableSpanProfiles(nil, log))
}
