package room

import (
	"sync"
	"time"
)

// repeatingTask is a cancellable fixed-interval loop bound to a room's
// lifetime. Stop is idempotent and leaves no tick running afterwards.
type repeatingTask struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
	done   chan struct{}
}

func startRepeatingTask(interval time.Duration, fn func(now time.Time)) *repeatingTask {
	if interval <= 0 {
		interval = time.Second
	}
	task := &repeatingTask{
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(task.done)
		for {
			select {
			case <-task.stop:
				return
			case now := <-task.ticker.C:
				fn(now)
			}
		}
	}()
	return task
}

// Stop cancels the loop. Safe to call more than once and from the loop's
// own callback.
func (t *repeatingTask) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.stop)
	})
}
