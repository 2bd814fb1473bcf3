// Package gameloop drives a fixed-rate simulation tick on a dedicated
// goroutine, matching the teacher's dedicated-thread idiom for components
// that own their own timing rather than piggybacking on a shared worker
// pool.
package gameloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickMetrics is the per-tick performance snapshot reported after every
// tick, whether driven by Run or invoked manually via Tick.
type TickMetrics struct {
	// UpdateTime is the time spent inside the tick callback.
	UpdateTime time.Duration
	// FrameTime is the frame time. It equals UpdateTime for ticks driven by
	// Run and by Tick alike; time spent waiting for the next tick is not
	// included.
	FrameTime time.Duration
	// BudgetUtilization is UpdateTime divided by TargetFrameTime (1.0 =
	// the whole per-tick budget consumed).
	BudgetUtilization float64
	// TickNumber is a monotonically increasing counter starting at 0.
	TickNumber uint64
	// Overrun is true when UpdateTime exceeded TargetFrameTime.
	Overrun bool
}

// TickFunc is invoked once per tick with the fixed delta time in seconds.
type TickFunc func(dt float64)

// MetricsFunc is invoked after every tick with that tick's metrics.
type MetricsFunc func(TickMetrics)

// Loop runs a tick callback at a fixed rate on a dedicated goroutine. The
// default rate is 20 Hz (50ms per tick), matching the original simulation
// budget.
type Loop struct {
	tickRate        uint32
	targetFrameTime time.Duration

	cbMu     sync.Mutex
	tickFn   TickFunc
	metricFn MetricsFunc

	running  atomic.Bool
	tickN    atomic.Uint64
	stopCh   chan struct{}
	doneCh   chan struct{}

	metricsMu   sync.Mutex
	lastMetrics TickMetrics
}

const defaultTickRate = 20

// New constructs a Loop at tickRate ticks per second. A non-positive rate
// falls back to the default (20 Hz).
func New(tickRate uint32) *Loop {
	if tickRate == 0 {
		tickRate = defaultTickRate
	}
	return &Loop{
		tickRate:        tickRate,
		targetFrameTime: time.Second / time.Duration(tickRate),
	}
}

// SetTickCallback sets the function invoked once per tick.
func (l *Loop) SetTickCallback(fn TickFunc) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.tickFn = fn
}

// SetMetricsCallback sets the function invoked after every tick with that
// tick's metrics.
func (l *Loop) SetMetricsCallback(fn MetricsFunc) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.metricFn = fn
}

// Start launches the loop's dedicated goroutine. Returns false if already
// running.
func (l *Loop) Start() bool {
	if !l.running.CompareAndSwap(false, true) {
		return false
	}
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run()
	return true
}

// Stop signals the loop to exit and waits for its goroutine to return. Safe
// to call even if the loop was never started.
func (l *Loop) Stop() {
	if !l.running.CompareAndSwap(true, false) {
		return
	}
	close(l.stopCh)
	<-l.doneCh
}

// Tick executes a single tick synchronously, for manual driving in tests.
// The loop must not simultaneously be running via Start.
func (l *Loop) Tick() TickMetrics {
	return l.executeTick()
}

// IsRunning reports whether the dedicated goroutine is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// TickRate returns the configured ticks-per-second.
func (l *Loop) TickRate() uint32 {
	return l.tickRate
}

// TargetFrameTime returns the fixed per-tick duration budget.
func (l *Loop) TargetFrameTime() time.Duration {
	return l.targetFrameTime
}

// TickCount returns the total number of ticks executed so far.
func (l *Loop) TickCount() uint64 {
	return l.tickN.Load()
}

// LastMetrics returns the metrics captured by the most recently completed
// tick driven by Run.
func (l *Loop) LastMetrics() TickMetrics {
	l.metricsMu.Lock()
	defer l.metricsMu.Unlock()
	return l.lastMetrics
}

func (l *Loop) run() {
	defer close(l.doneCh)

	nextTick := time.Now()
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		nextTick = nextTick.Add(l.targetFrameTime)

		metrics := l.executeTick()

		l.metricsMu.Lock()
		l.lastMetrics = metrics
		l.metricsMu.Unlock()

		l.cbMu.Lock()
		metricFn := l.metricFn
		l.cbMu.Unlock()
		if metricFn != nil {
			metricFn(metrics)
		}

		now := time.Now()
		if now.Before(nextTick) {
			timer := time.NewTimer(nextTick.Sub(now))
			select {
			case <-timer.C:
			case <-l.stopCh:
				timer.Stop()
				return
			}
		} else {
			// Overran the budget; reset instead of cascading catch-up.
			nextTick = now
		}
	}
}

func (l *Loop) executeTick() TickMetrics {
	frameStart := time.Now()

	l.cbMu.Lock()
	tickFn := l.tickFn
	l.cbMu.Unlock()

	if tickFn != nil {
		tickFn(l.targetFrameTime.Seconds())
	}

	updateDuration := time.Since(frameStart)

	var budgetUtilization float64
	if l.targetFrameTime > 0 {
		budgetUtilization = float64(updateDuration) / float64(l.targetFrameTime)
	}

	return TickMetrics{
		UpdateTime:        updateDuration,
		FrameTime:         updateDuration,
		BudgetUtilization: budgetUtilization,
		TickNumber:        l.tickN.Add(1) - 1,
		Overrun:           updateDuration > l.targetFrameTime,
	}
}
