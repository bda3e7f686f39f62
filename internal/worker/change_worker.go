// Package worker applies change notifications from other processes to the
// local subscriptions.
package worker

import (
	"context"
	"errors"
	"sync"

	"financas/internal/amqp"
	"financas/internal/log"
)

// Invalidator refreshes every subscription of one owner.
type Invalidator interface {
	Invalidate(ownerID string)
}

// Stats counts handled messages per operation.
type Stats struct {
	Handled  int
	Rejected int
	ByOp     map[string]int
}

// ChangeWorker turns change messages into subscription refreshes. The
// refresh re-reads the owner's whole list, so message order and duplicates
// do not matter.
type ChangeWorker struct {
	target Invalidator
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

func NewChangeWorker(target Invalidator, logger *log.Logger) *ChangeWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &ChangeWorker{
		target: target,
		logger: logger.WithComponent(log.ComponentWorker),
		stats:  Stats{ByOp: map[string]int{}},
	}
}

// HandleChangeMessage refreshes the subscriptions of msg's owner.
func (w *ChangeWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg == nil || msg.OwnerID == "" {
		w.mu.Lock()
		w.stats.Rejected++
		w.mu.Unlock()
		return errors.New("change message without owner")
	}

	w.logger.DebugContext(ctx, "Processing change message",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldOperation, msg.Op)
	w.target.Invalidate(msg.OwnerID)

	w.mu.Lock()
	w.stats.Handled++
	w.stats.ByOp[msg.Op]++
	w.mu.Unlock()
	return nil
}

// Handler adapts HandleChangeMessage to the consumer callback.
func (w *ChangeWorker) Handler(ctx context.Context) func(*amqp.ChangeMessage) error {
	return func(msg *amqp.ChangeMessage) error {
		return w.HandleChangeMessage(ctx, msg)
	}
}

// Stats returns a copy of the counters.
func (w *ChangeWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := Stats{Handled: w.stats.Handled, Rejected: w.stats.Rejected, ByOp: make(map[string]int, len(w.stats.ByOp))}
	for op, n := range w.stats.ByOp {
		out.ByOp[op] = n
	}
	return out
}
