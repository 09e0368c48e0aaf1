package session

import (
	"sync"
	"time"
)

// Timer tracks elapsed recording time against a maximum duration.
// It is wall-clock based rather than tick-count based so scheduling
// jitter does not skew the elapsed value. When elapsed reaches the
// maximum it fires onLimit exactly once and halts itself.
type Timer struct {
	interval time.Duration
	max      int
	onTick   func(elapsedSeconds int)
	onLimit  func()

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewTimer creates a timer that polls at the given interval and fires
// onLimit when elapsed wall-clock time reaches maxSeconds. Either
// callback may be nil. The timer is single-use.
func NewTimer(interval time.Duration, maxSeconds int, onTick func(int), onLimit func()) *Timer {
	return &Timer{
		interval: interval,
		max:      maxSeconds,
		onTick:   onTick,
		onLimit:  onLimit,
		stopCh:   make(chan struct{}),
	}
}

// Start records the start instant and begins polling.
func (t *Timer) Start() {
	start := time.Now()
	go t.run(start)
}

func (t *Timer) run(start time.Time) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			elapsed := int(time.Since(start) / time.Second)
			if t.onTick != nil {
				t.onTick(elapsed)
			}
			if elapsed >= t.max {
				t.Stop()
				if t.onLimit != nil {
					t.onLimit()
				}
				return
			}
		}
	}
}

// Stop halts the timer. Calling it on an already-stopped timer is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}
