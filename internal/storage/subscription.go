package storage

import (
	"context"
	"sync"
	"time"

	"financas/internal/collection"
	"financas/internal/log"
)

// subscription re-reads one owner's rows whenever it is triggered and
// pushes the result as a snapshot.
type subscription struct {
	owner   string
	trigger chan struct{}
	feed    *collection.Feed
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *subscription) poke() {
	select {
	case s.trigger <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.cancel()
		s.feed.Stop()
	})
}

// Subscribe reads the owner's rows once under ctx, pushes them, and keeps
// pushing a fresh snapshot after every write to that owner, every
// Invalidate, and every poll tick. Read failures after setup are pushed as
// Snapshot.Err and the subscription keeps going.
func (r *Repository) Subscribe(ctx context.Context, ownerID string, sink func(collection.Snapshot)) (collection.Unsubscribe, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		owner:   ownerID,
		trigger: make(chan struct{}, 1),
		feed:    collection.NewFeed(sink),
		cancel:  cancel,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.stop()
		return nil, ErrClosed
	}
	id := r.nextSub
	r.nextSub++
	// Registered before the first read so no write can slip between them.
	r.subs[id] = sub
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		sub.stop()
	}

	txs, err := r.List(ctx, ownerID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.feed.Push(collection.Snapshot{Transactions: txs})

	go r.run(runCtx, sub)

	r.logger.Debug("Subscription opened", log.FieldOwnerID, ownerID, log.FieldCount, len(txs))
	return unsubscribe, nil
}

func (r *Repository) run(ctx context.Context, sub *subscription) {
	var tick <-chan time.Time
	if r.poll > 0 {
		ticker := time.NewTicker(r.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.trigger:
		case <-tick:
		}

		txs, err := r.List(ctx, sub.owner)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Error("Failed to refresh subscription",
				log.NewFields().WithOperation(log.OpSnapshot).WithError(err).ToSlice()...)
			sub.feed.Push(collection.Snapshot{Err: err})
			continue
		}
		sub.feed.Push(collection.Snapshot{Transactions: txs})
	}
}

// Invalidate schedules a refresh for every subscription of ownerID. Bursts
// coalesce into one read.
func (r *Repository) Invalidate(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.owner == ownerID {
			sub.poke()
		}
	}
}

// Subscribers counts live subscriptions.
func (r *Repository) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
