// Scheduler — the periodic tick loop. One scheduler owns one world's
// time; ticks never overlap.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler states. Stopped is terminal: a stopped scheduler cannot be
// restarted, construct a new one.
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateRunning
	StateStopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrStopped is returned by Start on a stopped scheduler.
	ErrStopped = errors.New("scheduler is stopped")
)

// Scheduler fires ticks at a fixed wall-clock period. The loop runs in a
// single goroutine, so ticks are serialized by construction; a tick that
// outlasts the period makes the ticker drop firings rather than overlap.
type Scheduler struct {
	sim      *Simulation
	interval time.Duration

	mu     sync.Mutex
	state  SchedulerState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates an idle scheduler. Interval <= 0 defaults to one
// second.
func NewScheduler(sim *Simulation, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		sim:      sim,
		interval: interval,
		state:    StateIdle,
	}
}

// State returns the scheduler's current state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start arms the periodic timer and enters Running. The world's counters
// were loaded when the simulation was constructed, so the loop picks up
// from the last persisted tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStopped:
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning

	w := s.sim.World()
	slog.Info("scheduler started",
		"world", w.ID,
		"tick", w.CurrentTick,
		"year", w.CurrentYear,
		"interval", s.interval,
	)

	go s.loop(ctx)
	return nil
}

// Stop disarms the timer and enters Stopped. An in-flight tick finishes;
// Stop blocks until the loop has drained.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	slog.Info("scheduler stopped", "tick", s.sim.World().CurrentTick)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// markStopped records the terminal state when the loop drains. Stop sets
// it up front; an externally cancelled context reaches it only here.
func (s *Scheduler) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
}

// runTick executes one tick, swallowing failures so the loop survives.
// A failed tick has still advanced in-memory time without applying its
// effects; the next firing proceeds from there.
func (s *Scheduler) runTick(ctx context.Context) {
	start := time.Now()
	if err := s.sim.Tick(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("tick failed",
			"tick", s.sim.World().CurrentTick,
			"error", err,
		)
		return
	}

	if elapsed := time.Since(start); elapsed > s.interval {
		slog.Warn("slow tick",
			"tick", s.sim.World().CurrentTick,
			"elapsed", elapsed,
			"interval", s.interval,
		)
	}
}
