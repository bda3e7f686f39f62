// Package collection defines the remote transaction collection the store
// replicates: an owner-scoped document collection with push subscriptions.
package collection

import (
	"context"

	"financas/internal/core"
)

type (
	// Snapshot is a complete, ordered replacement of everything the
	// subscribed query currently sees. A non-nil Err means the stream failed
	// and Transactions must be ignored.
	Snapshot struct {
		Transactions []core.Transaction
		Err          error
	}

	// Unsubscribe stops a subscription. It is idempotent and does not wait
	// for a delivery already in progress; queued deliveries are dropped.
	Unsubscribe func()

	// Subscriber opens live, owner-scoped queries ordered by OccurredAt
	// descending, insertion order on ties. ctx bounds setup only; the
	// subscription lives until Unsubscribe.
	Subscriber interface {
		Subscribe(ctx context.Context, ownerID string, sink func(Snapshot)) (Unsubscribe, error)
	}

	// Writer applies at-most-once writes. Update and Delete report
	// core.ErrNotFound when id does not exist for the owner; other failures
	// are *core.WriteError. The collection assigns ID, CreatedAt and
	// UpdatedAt; Update never changes OwnerID or CreatedAt.
	Writer interface {
		Create(ctx context.Context, tx core.Transaction) (id string, err error)
		Update(ctx context.Context, id string, tx core.Transaction) error
		Delete(ctx context.Context, ownerID, id string) error
	}

	// Collection is the full adapter contract.
	Collection interface {
		Subscriber
		Writer
	}
)
