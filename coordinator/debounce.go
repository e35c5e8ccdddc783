package coordinator

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// DefaultDebounceDelay is the quiet period used for search and availability
// checks.
const DefaultDebounceDelay = 500 * time.Millisecond

type pendingCall struct {
	timer clock.Timer
	seq   uint64
}

// Debouncer coalesces bursts of triggers under a key into one call that runs
// after the key has been quiet for the delay. Every trigger restarts the
// wait and replaces the function to run.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	seq     uint64
	pending map[string]*pendingCall
}

// NewDebouncer creates a Debouncer on clk. A nil clock means the wall clock
// and a non-positive delay means DefaultDebounceDelay.
func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.WallClock
	}
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		clock:   clk,
		delay:   delay,
		pending: make(map[string]*pendingCall),
	}
}

// Trigger schedules fn under key, replacing anything scheduled before.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending[key] = &pendingCall{
		seq: seq,
		timer: d.clock.AfterFunc(d.delay, func() {
			d.mu.Lock()
			p, ok := d.pending[key]
			if !ok || p.seq != seq {
				d.mu.Unlock()
				return
			}
			delete(d.pending, key)
			d.mu.Unlock()
			fn()
		}),
	}
}

// Pending reports whether a call is scheduled under key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops the call scheduled under key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop drops every scheduled call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
