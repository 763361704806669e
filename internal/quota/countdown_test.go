package quota

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownFiresOnce(t *testing.T) {
	var ticks, dones atomic.Int32

	c := &Countdown{
		stopCh:   make(chan struct{}),
		now:      time.Now,
		interval: time.Millisecond,
	}
	doneCh := make(chan struct{})
	go c.run(time.Now().Add(10*time.Millisecond),
		func(time.Duration) { ticks.Add(1) },
		func() { dones.Add(1); close(doneCh) },
	)

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("countdown never completed")
	}

	if dones.Load() != 1 {
		t.Errorf("done fired %d times, want 1", dones.Load())
	}
	if ticks.Load() == 0 {
		t.Error("expected at least one tick before completion")
	}

	// Stop after natural completion must not fire done again.
	c.Stop()
	c.Stop()
	time.Sleep(5 * time.Millisecond)
	if dones.Load() != 1 {
		t.Errorf("done fired %d times after Stop, want 1", dones.Load())
	}
}

func TestCountdownStopPreventsDone(t *testing.T) {
	var dones atomic.Int32
	c := &Countdown{
		stopCh:   make(chan struct{}),
		now:      time.Now,
		interval: time.Millisecond,
	}
	go c.run(time.Now().Add(50*time.Millisecond), nil, func() { dones.Add(1) })

	c.Stop()
	time.Sleep(80 * time.Millisecond)
	if dones.Load() != 0 {
		t.Errorf("done fired %d times after Stop, want 0", dones.Load())
	}
}

func TestWatcherRearmReplaces(t *testing.T) {
	w := NewWatcher()
	defer w.Stop()

	var mu sync.Mutex
	cleared := 0
	clear := func() {
		mu.Lock()
		cleared++
		mu.Unlock()
	}

	// Far deadline, then immediately replaced with a near one.
	w.Arm("guest", time.Now().Add(time.Hour), clear)
	w.Arm("guest", time.Now().Add(5*time.Millisecond), clear)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := cleared
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("clear fired %d times, want 1", n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWatcherStaleExpiryKeepsReplacement(t *testing.T) {
	w := NewWatcher()
	defer w.Stop()

	var cleared atomic.Int32
	w.Arm("guest", time.Now().Add(time.Hour), func() { cleared.Add(1) })
	w.mu.Lock()
	stale := w.timers["guest"]
	w.mu.Unlock()

	w.Arm("guest", time.Now().Add(time.Hour), func() { cleared.Add(1) })

	// The first countdown finishing just as the re-arm replaces it must not
	// clear the new deadline or drop the new registration.
	w.expire("guest", stale, func() { cleared.Add(1) })

	if cleared.Load() != 0 {
		t.Errorf("clear fired %d times, want 0", cleared.Load())
	}
	w.mu.Lock()
	_, ok := w.timers["guest"]
	w.mu.Unlock()
	if !ok {
		t.Error("replacement countdown was dropped from the watcher")
	}
}

func TestWatcherStopCancelsAll(t *testing.T) {
	w := NewWatcher()
	var fired atomic.Int32
	w.Arm("a", time.Now().Add(10*time.Millisecond), func() { fired.Add(1) })
	w.Arm("b", time.Now().Add(10*time.Millisecond), func() { fired.Add(1) })
	w.Stop()

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("clear fired %d times after Stop, want 0", fired.Load())
	}
}
