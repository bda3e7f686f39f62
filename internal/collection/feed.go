package collection

import "sync"

// Feed delivers snapshots to one sink on its own goroutine, in the order
// they were pushed. The queue is unbounded so producers never block on a
// slow consumer.
type Feed struct {
	sink func(Snapshot)

	mu     sync.Mutex
	queue  []Snapshot
	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
}

// NewFeed starts the delivery goroutine.
func NewFeed(sink func(Snapshot)) *Feed {
	f := &Feed{
		sink: sink,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

// Push enqueues snap. Pushes after Stop are dropped.
func (f *Feed) Push(snap Snapshot) {
	select {
	case <-f.done:
		return
	default:
	}
	f.mu.Lock()
	f.queue = append(f.queue, snap)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Stop ends delivery. Safe to call more than once.
func (f *Feed) Stop() {
	f.closed.Do(func() { close(f.done) })
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		for {
			f.mu.Lock()
			if len(f.queue) == 0 {
				f.mu.Unlock()
				break
			}
			snap := f.queue[0]
			f.queue[0] = Snapshot{}
			f.queue = f.queue[1:]
			f.mu.Unlock()

			select {
			case <-f.done:
				return
			default:
			}
			f.sink(snap)
		}
	}
}
