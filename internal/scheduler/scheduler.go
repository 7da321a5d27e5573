// Package scheduler staggers persona response tasks so replies don't land
// in lockstep. Each task runs on its own goroutine; one task failing or
// running long never delays another.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/internal/targeting"
)

// Tuning controls the start delay: Base + i*Spacing + U[0,Jitter).
type Tuning struct {
	Base    time.Duration `yaml:"base"`
	Spacing time.Duration `yaml:"spacing"`
	Jitter  time.Duration `yaml:"jitter"`
	// MaxConcurrent bounds tasks executing at once. 0 means unbounded.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DefaultTuning returns the stock delays.
func DefaultTuning() Tuning {
	return Tuning{
		Base:    800 * time.Millisecond,
		Spacing: 1500 * time.Millisecond,
		Jitter:  time.Second,
	}
}

// Task is the work fired for one target in the channel it was scheduled for.
type Task func(ctx context.Context, channelID string, target targeting.Target)

// Scheduler fires tasks after their computed delay.
type Scheduler struct {
	tuning Tuning
	rng    dice.Source
	sem    *semaphore.Weighted
	logger *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a scheduler.
func New(t Tuning, src dice.Source, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		tuning: t,
		rng:    src,
		logger: logger,
		done:   make(chan struct{}),
	}
	if t.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(t.MaxConcurrent))
	}
	return s
}

// Delay computes the start delay for the target at position i.
func (s *Scheduler) Delay(i int) time.Duration {
	d := s.tuning.Base + time.Duration(i)*s.tuning.Spacing
	if s.tuning.Jitter > 0 {
		d += time.Duration(s.rng.Float64() * float64(s.tuning.Jitter))
	}
	return d
}

// Schedule arms one timer per target and returns the delays without waiting.
// Tasks run with ctx; cancelling ctx or calling Close drops timers that have
// not fired yet. Running tasks are never interrupted by the scheduler.
func (s *Scheduler) Schedule(ctx context.Context, channelID string, targets []targeting.Target, task Task) []time.Duration {
	delays := make([]time.Duration, len(targets))
	for i, tg := range targets {
		delays[i] = s.Delay(i)
		s.wg.Add(1)
		go s.fire(ctx, delays[i], channelID, tg, task)
	}
	return delays
}

func (s *Scheduler) fire(ctx context.Context, delay time.Duration, channelID string, tg targeting.Target, task Task) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	case <-s.done:
		s.logger.Debug("dropped unfired task", zap.String("channel", channelID), zap.String("persona", tg.PersonaID))
		return
	}

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("response task panicked",
				zap.String("channel", channelID),
				zap.String("persona", tg.PersonaID),
				zap.Any("panic", r),
			)
		}
	}()
	task(ctx, channelID, tg)
}

// Wait blocks until every scheduled task has finished or been dropped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close drops timers that have not fired and waits for running tasks.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}
