package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyRuns is returned when every run slot stays occupied for the whole
// wait period.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

const (
	DefaultMaxConcurrentRuns = 4
	DefaultMaxWaitTime       = 30 * time.Second
)

// RunLimiter bounds how many Clear & Match or Compare runs execute at once.
// Each run holds decoded files and a rendered workbook in memory, so the
// bound is on whole runs rather than on requests.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter allows at most maxConcurrent runs. Callers that cannot get a
// slot within maxWait receive ErrTooManyRuns.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a run slot. On success the returned release function
// must be called exactly once; calling it again is a no-op.
func (l *RunLimiter) Acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return l.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTooManyRuns
	}
}

func (l *RunLimiter) releaser() func() {
	l.active.Add(1)
	var done atomic.Bool
	return func() {
		if done.Swap(true) {
			return
		}
		l.active.Add(-1)
		<-l.slots
	}
}

// ActiveCount returns the number of runs currently holding a slot.
func (l *RunLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no run is active or ctx ends. Used on shutdown.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// RunLimiterStatus is a snapshot for health reporting.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *RunLimiter) Status() RunLimiterStatus {
	return RunLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.MaxConcurrent() - len(l.slots),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
