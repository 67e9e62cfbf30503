package core

// gate.go serializes the session pipeline.
//
// There is one session per process, so upload, select and download must
// not interleave: a download racing a re-upload could package half of each.
// The gate is a one-slot semaphore. Callers wait up to maxWait for the slot
// before failing with ErrBusy, and Drain lets shutdown wait for the running
// step and then keep the slot so nothing new starts.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when another pipeline step holds the gate and the
// wait timeout expires. Clients should retry after a short delay.
var ErrBusy = errors.New("session busy: another operation is in progress")

// DefaultMaxWaitTime is how long to wait for the gate before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Gate admits one pipeline step at a time.
type Gate struct {
	slot    chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	holder string
	since  time.Time
}

// NewGate creates a gate whose Acquire waits at most maxWait.
func NewGate(maxWait time.Duration) *Gate {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Gate{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire takes the gate for op. Returns nil on success, ErrBusy if the
// wait expires, or the context error if ctx ends first.
// The caller MUST call Release() when the step completes (use defer).
func (g *Gate) Acquire(ctx context.Context, op string) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		g.take(op)
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBusy
	}
}

// TryAcquire takes the gate without blocking.
func (g *Gate) TryAcquire(op string) bool {
	select {
	case g.slot <- struct{}{}:
		g.take(op)
		return true
	default:
		return false
	}
}

func (g *Gate) take(op string) {
	g.mu.Lock()
	g.holder = op
	g.since = time.Now()
	g.mu.Unlock()
}

// Release frees the gate. Must be called exactly once per successful
// Acquire/TryAcquire.
func (g *Gate) Release() {
	g.mu.Lock()
	g.holder = ""
	g.since = time.Time{}
	g.mu.Unlock()

	<-g.slot
}

// Busy reports whether a step currently holds the gate.
func (g *Gate) Busy() bool {
	return len(g.slot) > 0
}

// DrainOp is the holder name reported while the gate is drained.
const DrainOp = "shutdown"

// Drain waits for the running step to finish, then takes the gate for
// good: every later Acquire fails with ErrBusy. Drain returns the context
// error if ctx ends first, leaving the gate as it was.
func (g *Gate) Drain(ctx context.Context) error {
	if g.TryAcquire(DrainOp) {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.TryAcquire(DrainOp) {
				return nil
			}
		}
	}
}

// GateStatus is a snapshot of the gate for monitoring.
type GateStatus struct {
	Busy   bool      `json:"busy"`
	Holder string    `json:"holder,omitempty"`
	Since  time.Time `json:"since,omitempty"`
}

// Status returns the current gate state.
func (g *Gate) Status() GateStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return GateStatus{
		Busy:   g.holder != "",
		Holder: g.holder,
		Since:  g.since,
	}
}
