// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scheduler runs batch cycles in the background on a fixed cadence.
//
// A Scheduler owns one loop goroutine. Each iteration checks the pause
// state, runs one batch when active, and sleeps. Sleeps are interrupted by
// Stop and by Resume. Pauses are either timed, in which case the loop clears
// them once the resume time has passed, or last until Resume is called.
//
// Only one Scheduler should process a given repository: batches fetch
// awaiting documents without claiming them atomically.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/enricher/batch"
)

const (
	DefaultActiveInterval = 60 * time.Second
	DefaultPausedInterval = 30 * time.Second
	DefaultErrorBackoff   = 30 * time.Second
	DefaultJoinTimeout    = 5 * time.Second
)

// Runner runs one batch cycle. batch.Processor implements it.
type Runner interface {
	ProcessPending(ctx context.Context, limit int) (*batch.Result, error)
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Running  bool
	Paused   bool
	ResumeAt *time.Time // nil when not paused or paused until Resume
}

// Scheduler runs batches in the background.
type Scheduler struct {
	runner Runner
	limit  int

	activeInterval time.Duration
	pausedInterval time.Duration
	errorBackoff   time.Duration
	joinTimeout    time.Duration
	now            func() time.Time
	logger         *slog.Logger

	mu       sync.Mutex
	paused   bool
	resumeAt time.Time // zero while paused means until Resume
	cancel   context.CancelFunc
	done     chan struct{}
	wake     chan struct{}

	// runMu serializes batches from the loop and RunNow.
	runMu sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithActiveInterval sets the sleep after a batch.
// Default is 60s.
func WithActiveInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		s.activeInterval = d
		return nil
	}
}

// WithPausedInterval sets how often a paused loop rechecks its pause.
// Default is 30s.
func WithPausedInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		s.pausedInterval = d
		return nil
	}
}

// WithErrorBackoff sets the sleep after a failed batch.
// Default is 30s.
func WithErrorBackoff(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		s.errorBackoff = d
		return nil
	}
}

// WithJoinTimeout sets how long Stop waits for the loop to exit.
// Default is 5s.
func WithJoinTimeout(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return ErrInvalidInterval
		}
		s.joinTimeout = d
		return nil
	}
}

// WithBatchLimit sets the limit passed to the runner on every loop
// iteration. Zero lets the runner use its configured batch size.
func WithBatchLimit(limit int) Option {
	return func(s *Scheduler) error {
		s.limit = max(limit, 0)
		return nil
	}
}

// WithClock overrides the clock used for timed pauses.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a stopped scheduler.
func New(runner Runner, opts ...Option) (*Scheduler, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	s := &Scheduler{
		runner:         runner,
		activeInterval: DefaultActiveInterval,
		pausedInterval: DefaultPausedInterval,
		errorBackoff:   DefaultErrorBackoff,
		joinTimeout:    DefaultJoinTimeout,
		now:            time.Now,
		logger:         slog.Default(),
		wake:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")
	return s, nil
}

// Start launches the loop. Returns false if it is already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info("scheduler started", "interval", s.activeInterval)
	return true
}

// Stop cancels the loop and waits up to the join timeout for it to exit.
// A batch in progress finishes its current document first. Returns false
// if the scheduler was not running or the loop did not exit in time.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()

	timer := time.NewTimer(s.joinTimeout)
	defer timer.Stop()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return true
	case <-timer.C:
		s.logger.Warn("scheduler loop did not exit in time", "timeout", s.joinTimeout)
		return false
	}
}

// Pause suspends batch runs. DelayNone clears any pause, a positive delay
// pauses for that many seconds and DelayForever pauses until Resume.
func (s *Scheduler) Pause(delay Delay) error {
	if err := delay.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case delay == DelayNone:
		s.paused = false
		s.resumeAt = time.Time{}
		s.signalWake()
		s.logger.Info("pause cleared")
	case delay == DelayForever:
		s.paused = true
		s.resumeAt = time.Time{}
		s.logger.Info("paused until resumed")
	default:
		s.paused = true
		s.resumeAt = s.now().Add(delay.Duration())
		s.logger.Info("paused", "delay", delay, "resume_at", s.resumeAt)
	}
	return nil
}

// Resume clears any pause and wakes a sleeping loop.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.resumeAt = time.Time{}
	s.mu.Unlock()

	s.signalWake()
	s.logger.Info("resumed")
}

// signalWake interrupts a sleeping loop without blocking. A pending wake
// is kept, so a signal sent while the loop is busy still cuts the next
// sleep short.
func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Status reports whether the loop is running and the stored pause state.
// An elapsed timed pause is reported until the loop next checks it.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running: s.cancel != nil,
		Paused:  s.paused,
	}
	if s.paused && !s.resumeAt.IsZero() {
		resumeAt := s.resumeAt
		st.ResumeAt = &resumeAt
	}
	return st
}

// RunNow runs one batch synchronously, ignoring any pause.
func (s *Scheduler) RunNow(ctx context.Context, limit int) (*batch.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.ProcessPending(ctx, limit)
}

// checkPause reports whether the loop should stay idle, clearing a timed
// pause whose resume time has passed.
func (s *Scheduler) checkPause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused {
		return false
	}
	if !s.resumeAt.IsZero() && !s.now().Before(s.resumeAt) {
		s.logger.Info("pause expired", "resume_at", s.resumeAt)
		s.paused = false
		s.resumeAt = time.Time{}
		return false
	}
	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		var wait time.Duration
		switch {
		case s.checkPause():
			wait = s.pausedInterval
		case s.runBatch(ctx) != nil:
			wait = s.errorBackoff
		default:
			wait = s.activeInterval
		}

		if !s.sleep(ctx, wait) {
			return
		}
	}
}

func (s *Scheduler) runBatch(ctx context.Context) error {
	result, err := s.RunNow(ctx, s.limit)
	if err != nil {
		s.logger.Error("batch failed", "err", err, "backoff", s.errorBackoff)
		return err
	}
	if result.Attempted > 0 {
		s.logger.Info("batch complete",
			"cycle_id", result.CycleID,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"deferred", result.Deferred)
	}
	return nil
}

// sleep waits for d, a resume, or cancellation. Returns false on cancellation.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return true
	case <-timer.C:
		return true
	}
}
