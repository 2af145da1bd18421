package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"emberhold/realmd/pkg/events"
	"emberhold/realmd/pkg/telemetry/tracing"
)

// SaveFunc writes the world and returns the number of players saved.
type SaveFunc func(ctx context.Context) (int, error)

// Observer receives save results. *metrics.Collector satisfies it.
type Observer interface {
	RecordSave(duration time.Duration, players int, err error)
	RecordSaveSkipped()
}

// Config contains scheduler settings.
type Config struct {
	// Interval between saves. Must be at least one second.
	Interval time.Duration

	// LowerPriority runs each save on an OS thread with reduced
	// scheduling priority.
	LowerPriority bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver reports save results to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithEvents raises events.WorldSave after every successful save.
func WithEvents(bus *events.Bus) Option {
	return func(s *Scheduler) {
		s.bus = bus
	}
}

// WithTracer emits a span per save.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = t
	}
}

// Scheduler runs periodic world saves. At most one save runs at a time;
// a tick that fires while a save is still running is skipped.
type Scheduler struct {
	save     SaveFunc
	config   Config
	cron     *cron.Cron
	logger   *slog.Logger
	observer Observer
	bus      *events.Bus
	tracer   *tracing.Tracer

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	saving sync.Mutex
}

// New creates a stopped scheduler.
func New(save SaveFunc, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		save:   save,
		config: cfg,
		logger: slog.Default().With("component", "persistence"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s})))
	return s
}

// Start arms the save timer.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("persistence scheduler already running")
	}
	if s.save == nil {
		return errors.New("persistence scheduler has no save function")
	}
	if s.config.Interval < time.Second {
		return fmt.Errorf("save interval %s is below one second", s.config.Interval)
	}

	spec := fmt.Sprintf("@every %s", s.config.Interval)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	ctx := s.ctx

	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule world save: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("persistence scheduler started",
		"interval", s.config.Interval,
		"lower_priority", s.config.LowerPriority,
	)
	return nil
}

// Stop disarms the timer and waits for a running save to finish. It is
// safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	for _, e := range s.cron.Entries() {
		s.cron.Remove(e.ID)
	}
	s.cancel()
	s.running = false
	s.logger.Info("persistence scheduler stopped")
}

// IsRunning reports whether the timer is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled save time, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// RunNow performs a save immediately, waiting for any save in progress.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	if s.save == nil {
		return 0, errors.New("persistence scheduler has no save function")
	}
	s.saving.Lock()
	defer s.saving.Unlock()
	return s.run(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.saving.TryLock() {
		s.skipped()
		return
	}
	defer s.saving.Unlock()
	s.run(ctx)
}

func (s *Scheduler) skipped() {
	s.logger.Warn("world save still running, skipping tick")
	if s.observer != nil {
		s.observer.RecordSaveSkipped()
	}
}

// run executes one save. With LowerPriority set the save runs on a
// dedicated, deprioritized OS thread that is discarded afterwards.
func (s *Scheduler) run(ctx context.Context) (int, error) {
	if !s.config.LowerPriority {
		return s.runSave(ctx)
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		// Never unlocked: the thread exits with this goroutine.
		runtime.LockOSThread()
		if err := lowerThreadPriority(); err != nil {
			s.logger.Debug("could not lower save thread priority", "error", err)
		}
		n, err := s.runSave(ctx)
		done <- result{n, err}
	}()
	r := <-done
	return r.n, r.err
}

func (s *Scheduler) runSave(ctx context.Context) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanPersistenceSave)
	start := time.Now()
	s.logger.Info("saving world")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("world save panicked: %v", r)
		}

		elapsed := time.Since(start)
		span.SetAttributes(tracing.AttrPlayersSaved.Int(n))
		tracing.End(span, err)
		if s.observer != nil {
			s.observer.RecordSave(elapsed, n, err)
		}

		if err != nil {
			s.logger.Error("world save failed", "error", err, "duration", elapsed)
			return
		}
		s.logger.Info("world saved", "players", n, "duration", elapsed)
		if s.bus != nil {
			s.bus.Notify(ctx, events.WorldSave, s, n)
		}
	}()

	return s.save(ctx)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	s *Scheduler
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.s.skipped()
		return
	}
	l.s.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
