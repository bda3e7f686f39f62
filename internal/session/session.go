// Package session turns identity changes into store lifecycle calls.
package session

import (
	"context"
	"errors"
	"strings"

	"financas/internal/log"
)

// Identity is the signed-in user as reported by the identity provider.
// An empty OwnerID means signed out.
type Identity struct {
	OwnerID string
}

// SignedIn reports whether the identity names an owner.
func (i Identity) SignedIn() bool {
	return strings.TrimSpace(i.OwnerID) != ""
}

// Lifecycle is the part of the store a session drives.
type Lifecycle interface {
	Open(ctx context.Context, ownerID string) error
	Close()
}

// Follow applies every identity received on ids to lc until ids is closed
// or ctx is done, then closes lc. Repeated identities are ignored. Failures
// to open are logged and left in the store's state; Follow keeps going.
// The logger is taken from ctx.
func Follow(ctx context.Context, ids <-chan Identity, lc Lifecycle) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentSession)
	defer lc.Close()

	current := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-ids:
			if !ok {
				return nil
			}
			owner := strings.TrimSpace(id.OwnerID)
			if owner == current {
				continue
			}
			current = owner

			if owner == "" {
				logger.InfoContext(ctx, "Signed out")
				lc.Close()
				continue
			}
			logger.InfoContext(ctx, "Signed in", log.FieldOwnerID, owner)
			if err := lc.Open(ctx, owner); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !errors.Is(err, context.Canceled) {
					logger.ErrorContext(ctx, "Failed to open session",
						log.NewFields().WithOperation(log.OpOpen).WithError(err).ToSlice()...)
				}
			}
		}
	}
}

// Static yields a single identity and never closes, for processes whose
// owner is fixed until shutdown.
func Static(ownerID string) <-chan Identity {
	ch := make(chan Identity, 1)
	ch <- Identity{OwnerID: ownerID}
	return ch
}
