package filestore

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of filesystem events per key: each add resets
// the key's timer, and the callback fires only after the delay passes with
// no further events.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// add schedules fire for key, replacing any pending schedule for the same key.
func (d *debouncer) add(key string, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		// A timer that already fired handles its own bookkeeping.
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fire()
		}
	})
	d.timers[key] = t
}

// stopAndWait stops accepting events and waits (bounded) for in-flight
// timers to complete.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
