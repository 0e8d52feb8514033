package ingest

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events per key. A scanner writing a chunk
// file often fires several write events before the file is complete.
type Debouncer struct {
	duration time.Duration
	timers   map[string]*time.Timer
	mu       sync.Mutex
	stopped  bool
}

func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		timers:   make(map[string]*time.Timer),
	}
}

// Debounce schedules fn for key, replacing any pending schedule for the same
// key. fn runs under the debouncer's lock and must not call back into it.
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
	}

	d.timers[key] = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stopped {
			return
		}
		delete(d.timers, key)
		fn()
	})
}

// Stop cancels every pending timer. The stopped gate and the callbacks share
// one lock, so once Stop returns no callback fires.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
