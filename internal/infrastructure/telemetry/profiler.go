package telemetry

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

const defaultProfileRate = 5

// Profiling label keys attached to request goroutines
const (
	ProfilingLabelRoute  = "route"
	ProfilingLabelMethod = "method"
)

var profileTypesByName = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// DefaultProfileTypes are collected when no types are configured
var DefaultProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}

// ProfilerConfig holds Pyroscope continuous profiling settings
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
	// SpanProfiles links CPU samples to the active trace span
	SpanProfiles bool
}

// Profiler owns the Pyroscope session
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	mu       sync.Mutex
	stopped  bool
}

// ParseProfileTypes maps configured names such as "cpu" or "inuse_space"
// to Pyroscope profile types. Empty input selects DefaultProfileTypes.
func ParseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	if len(names) == 0 {
		names = DefaultProfileTypes
	}
	types := make([]pyroscope.ProfileType, 0, len(names))
	seen := make(map[pyroscope.ProfileType]bool, len(names))
	for _, name := range names {
		pt, ok := profileTypesByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		if !seen[pt] {
			seen[pt] = true
			types = append(types, pt)
		}
	}
	return types, nil
}

// NewProfiler starts profiling to cfg.ServerAddress. When disabled the
// returned profiler does nothing.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	types, err := ParseProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	for _, pt := range types {
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(defaultProfileRate)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(defaultProfileRate)
		}
	}

	tags := map[string]string{}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		tags["hostname"] = hostname
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            logger.Named("pyroscope").Sugar(),
		Tags:              tags,
		ProfileTypes:      types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = profiler

	logger.Info("Continuous profiling enabled",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

// IsEnabled reports whether profiles are being uploaded
func (p *Profiler) IsEnabled() bool {
	return p != nil && p.profiler != nil
}

// Stop flushes and ends the session. Safe to call more than once.
func (p *Profiler) Stop() error {
	if !p.IsEnabled() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Continuous profiling stopped")
	return nil
}

// WithProfilingLabels runs fn with labels attached to its goroutine so
// profiles can be filtered by them. Empty values are skipped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := make([]string, 0, len(labels)*2)
	for k, v := range labels {
		if k != "" && v != "" {
			pairs = append(pairs, k, v)
		}
	}
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}
