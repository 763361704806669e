package quota

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Countdown ticks once per second toward a deadline and then fires a
// completion callback exactly once. Stop cancels it without firing.
type Countdown struct {
	stopCh   chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once

	now      func() time.Time
	interval time.Duration
}

// run ticks toward deadline. onTick receives the remaining time each
// interval; onDone runs once when the deadline passes. Both callbacks run on
// the countdown goroutine.
func (c *Countdown) run(deadline time.Time, onTick func(time.Duration), onDone func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			left := deadline.Sub(c.now())
			if left <= 0 {
				c.doneOnce.Do(onDone)
				return
			}
			if onTick != nil {
				onTick(left)
			}
		}
	}
}

// Stop cancels the countdown. Safe to call multiple times and after the
// countdown has completed on its own.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Watcher tracks one live Countdown per client so the persisted cooldown
// deadline is cleared when it expires, even if the client never asks again.
type Watcher struct {
	mu     sync.Mutex
	timers map[string]*Countdown
}

func NewWatcher() *Watcher {
	return &Watcher{timers: make(map[string]*Countdown)}
}

// Arm starts (or restarts) the countdown for a client. clear runs once at
// expiry; it should reset the persisted cooldown state.
func (w *Watcher) Arm(clientID string, deadline time.Time, clear func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.timers[clientID]; ok {
		prev.Stop()
	}
	cd := &Countdown{
		stopCh:   make(chan struct{}),
		now:      time.Now,
		interval: time.Second,
	}
	w.timers[clientID] = cd
	go cd.run(deadline, nil, func() { w.expire(clientID, cd, clear) })
}

// expire runs clear only while cd is still the registered countdown. A stale
// countdown whose deadline passed during a re-arm must not wipe the
// replacement's state or registration.
func (w *Watcher) expire(clientID string, cd *Countdown, clear func()) {
	w.mu.Lock()
	if w.timers[clientID] != cd {
		w.mu.Unlock()
		return
	}
	delete(w.timers, clientID)
	w.mu.Unlock()
	clear()
	log.Debug().Str("client_id", clientID).Msg("Cooldown expired")
}

// Stop cancels every live countdown. Used at server shutdown; persisted
// deadlines are still honored by timestamp on the next start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, cd := range w.timers {
		cd.Stop()
		delete(w.timers, id)
	}
}
