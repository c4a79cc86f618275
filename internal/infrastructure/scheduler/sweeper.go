package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepFunc runs one pass of a periodic job and returns how many records it
// touched
type SweepFunc func(ctx context.Context, now time.Time) (int, error)

// Sweep is a named periodic job
type Sweep struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      SweepFunc
}

// SweeperConfig holds sweeper configuration
type SweeperConfig struct {
	// Enabled determines if the periodic loops are started
	Enabled bool

	// RunOnStart runs every sweep once right after Start
	RunOnStart bool

	// DefaultTimeout bounds a single pass when the sweep sets none
	DefaultTimeout time.Duration
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:        true,
		RunOnStart:     true,
		DefaultTimeout: 5 * time.Minute,
	}
}

// Sweeper runs registered sweeps on fixed intervals. A pass that is still
// running when its next tick fires is not overlapped; the tick is dropped.
type Sweeper struct {
	config SweeperConfig
	logger *zap.Logger
	now    func() time.Time

	sweeps    []Sweep
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a new sweeper
func NewSweeper(config SweeperConfig, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultSweeperConfig().DefaultTimeout
	}
	return &Sweeper{
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source passed to sweeps
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Register adds a sweep. Sweeps must be registered before Start.
func (s *Sweeper) Register(sweep Sweep) error {
	if sweep.Name == "" || sweep.Run == nil || sweep.Interval <= 0 {
		return fmt.Errorf("%w: sweep %q needs a name, a func and a positive interval", ErrInvalidConfig, sweep.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrAlreadyRunning
	}
	if sweep.Timeout <= 0 {
		sweep.Timeout = s.config.DefaultTimeout
	}
	s.sweeps = append(s.sweeps, sweep)
	return nil
}

// Start launches one loop per registered sweep
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Lifecycle sweeper is disabled")
		return nil
	}
	s.isRunning = true
	sweeps := append([]Sweep(nil), s.sweeps...)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, sweep := range sweeps {
		s.wg.Add(1)
		go s.loop(ctx, sweep)
	}

	s.logger.Info("Lifecycle sweeper started", zap.Int("sweeps", len(sweeps)))
	return nil
}

// Stop cancels the loops and waits for running passes to return
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Lifecycle sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Lifecycle sweeper stop timed out")
		return ctx.Err()
	}
}

// RunNow runs the named sweep once in the caller's goroutine
func (s *Sweeper) RunNow(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	var found *Sweep
	for i := range s.sweeps {
		if s.sweeps[i].Name == name {
			found = &s.sweeps[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return 0, fmt.Errorf("%w: %s", ErrSweepNotFound, name)
	}
	return s.execute(ctx, *found)
}

func (s *Sweeper) loop(ctx context.Context, sweep Sweep) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		_, _ = s.execute(ctx, sweep)
	}

	ticker := time.NewTicker(sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep loop stopping", zap.String("sweep", sweep.Name))
			return
		case <-ticker.C:
			_, _ = s.execute(ctx, sweep)
		}
	}
}

func (s *Sweeper) execute(ctx context.Context, sweep Sweep) (n int, err error) {
	runCtx, cancel := context.WithTimeout(ctx, sweep.Timeout)
	defer cancel()

	startedAt := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep %s panicked: %v", sweep.Name, r)
		}
		if err != nil {
			s.logger.Error("Sweep failed",
				zap.String("sweep", sweep.Name),
				zap.Duration("duration", time.Since(startedAt)),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("Sweep completed",
			zap.String("sweep", sweep.Name),
			zap.Int("affected", n),
			zap.Duration("duration", time.Since(startedAt)),
		)
	}()

	return sweep.Run(runCtx, s.now())
}
