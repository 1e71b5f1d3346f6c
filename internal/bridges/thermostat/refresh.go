package thermostat

import (
	"context"
	"sync"
	"time"
)

// Refresher forces a full publish at a fixed interval so controllers that
// missed retained state or restarted catch up.
type Refresher struct {
	interval time.Duration
	refresh  func()

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRefresher creates a refresher that calls fn every interval.
// An interval of zero or less disables it.
func NewRefresher(interval time.Duration, fn func()) *Refresher {
	return &Refresher{
		interval: interval,
		refresh:  fn,
		done:     make(chan struct{}),
	}
}

// Start begins the refresh loop. It returns immediately.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 || r.refresh == nil {
		return
	}
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop ends the loop and waits for an in-flight refresh.
// Safe to call multiple times.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}
