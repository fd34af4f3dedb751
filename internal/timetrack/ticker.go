package timetrack

import (
	"context"
	"sync"
	"time"
)

// Ticker runs fn on an interval until stopped. Start replaces any running
// schedule; Stop is safe to call repeatedly and waits for the goroutine to exit.
// fn receives the schedule's context, which Stop cancels; a fn that hands
// values to another goroutine must give up once it is done, or Stop blocks.
type Ticker struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Ticker) Start(ctx context.Context, interval time.Duration, fn func(ctx context.Context, now time.Time)) {
	t.Stop()
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel, t.done = cancel, done
	t.mu.Unlock()

	go func() {
		defer close(done)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tk.C:
				fn(ctx, now)
			}
		}
	}()
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
