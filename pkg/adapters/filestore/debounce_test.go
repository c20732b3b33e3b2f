package filestore

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stopAndWait(time.Second)

	var fired atomic.Int32
	for i := 0; i < 10; i++ {
		d.add("key", func() { fired.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestDebouncer_IndependentKeys(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	defer d.stopAndWait(time.Second)

	var a, b atomic.Int32
	d.add("a", func() { a.Add(1) })
	d.add("b", func() { b.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("fired a=%d b=%d, want 1 each", a.Load(), b.Load())
	}
}

func TestDebouncer_StopSuppressesPending(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)

	var fired atomic.Int32
	d.add("key", func() { fired.Add(1) })
	d.stopAndWait(time.Second)

	// Adds after stop are ignored, pending timers never fire the callback.
	d.add("late", func() { fired.Add(1) })
	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("fired %d times after stop", n)
	}
}
