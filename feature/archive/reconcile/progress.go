package reconcile

// ProgressFunc receives progress updates during a job. It is invoked from a
// single goroutine regardless of worker count, so implementations need no
// synchronization of their own.
type ProgressFunc func(completed, total int, message string)

type progressEvent struct {
	delta   int
	message string
}

// progressTracker funnels progress events from all workers through one
// channel with a single consumer, so the callback is never invoked
// concurrently. Workers emit an event after every task state transition;
// delta is 1 only for transitions that finish an identity.
type progressTracker struct {
	events chan progressEvent
	done   chan struct{}
	total  int
}

func newProgressTracker(fn ProgressFunc, total int) *progressTracker {
	t := &progressTracker{
		events: make(chan progressEvent, 64),
		done:   make(chan struct{}),
		total:  total,
	}
	go func() {
		defer close(t.done)
		completed := 0
		for ev := range t.events {
			completed += ev.delta
			if fn != nil {
				fn(completed, t.total, ev.message)
			}
		}
	}()
	return t
}

// Emit queues a progress event. Safe to call from any worker.
func (t *progressTracker) Emit(delta int, message string) {
	t.events <- progressEvent{delta: delta, message: message}
}

// Close drains the event channel and waits for the consumer to finish, so no
// callback fires after Run returns.
func (t *progressTracker) Close() {
	close(t.events)
	<-t.done
}
