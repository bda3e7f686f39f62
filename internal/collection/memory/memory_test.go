package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"financas/internal/collection"
	"financas/internal/core"
)

func recorder(t *testing.T) (func(collection.Snapshot), <-chan collection.Snapshot) {
	t.Helper()
	ch := make(chan collection.Snapshot, 64)
	return func(s collection.Snapshot) { ch <- s }, ch
}

func next(t *testing.T, ch <-chan collection.Snapshot) collection.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return collection.Snapshot{}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func TestSubscribePushesOwnerScopedOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDs(sequentialIDs()))
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	sink, ch := recorder(t)
	unsub, err := s.Subscribe(ctx, "alice", sink)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if snap := next(t, ch); len(snap.Transactions) != 0 || snap.Err != nil {
		t.Fatalf("initial snapshot = %+v", snap)
	}

	mustCreate := func(owner, desc string, at time.Time) string {
		id, err := s.Create(ctx, core.Transaction{OwnerID: owner, Kind: core.Expense, Description: desc, Amount: core.Money{Cents: 100}, OccurredAt: at})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return id
	}
	mustCreate("alice", "older", base)
	mustCreate("bob", "not alice", base.Add(time.Hour))
	mustCreate("alice", "newer", base.Add(2*time.Hour))
	mustCreate("alice", "same time as older", base)

	next(t, ch)
	next(t, ch)
	snap := next(t, ch)
	var descs []string
	for _, tx := range snap.Transactions {
		if tx.OwnerID != "alice" {
			t.Fatalf("leaked %+v into alice's snapshot", tx)
		}
		descs = append(descs, tx.Description)
	}
	want := []string{"newer", "older", "same time as older"}
	if fmt.Sprint(descs) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", descs, want)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected push for another owner's write: %+v", extra)
	default:
	}
}

func TestCreateAssignsMonotonicServerTimestamps(t *testing.T) {
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	id, _ := s.Create(ctx, core.Transaction{OwnerID: "a", Kind: core.Expense, CreatedAt: frozen.Add(-time.Hour)})
	if err := s.Update(ctx, id, core.Transaction{OwnerID: "a", Kind: core.Expense, Description: "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap := s.snapshotLocked("a")
	if !snap[0].CreatedAt.Equal(frozen) {
		t.Fatalf("client CreatedAt was kept: %v", snap[0].CreatedAt)
	}
	if !snap[0].UpdatedAt.After(snap[0].CreatedAt) {
		t.Fatalf("UpdatedAt %v not after CreatedAt %v", snap[0].UpdatedAt, snap[0].CreatedAt)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, _ := s.Create(ctx, core.Transaction{OwnerID: "alice", Kind: core.Expense})

	if err := s.Update(ctx, "missing", core.Transaction{OwnerID: "alice", Kind: core.Expense}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	// Another owner cannot see, and therefore cannot touch, alice's record.
	if err := s.Update(ctx, id, core.Transaction{OwnerID: "bob", Kind: core.Expense}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update foreign: %v", err)
	}
	if err := s.Delete(ctx, "bob", id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete foreign: %v", err)
	}
	if err := s.Delete(ctx, "alice", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "alice", id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("network down")

	s.FailWrites(boom)
	_, err := s.Create(ctx, core.Transaction{OwnerID: "a", Kind: core.Expense})
	var werr *core.WriteError
	if !errors.As(err, &werr) || !errors.Is(err, boom) {
		t.Fatalf("create err = %v", err)
	}
	s.FailWrites(nil)

	s.FailSubscribe(boom)
	if _, err := s.Subscribe(ctx, "a", func(collection.Snapshot) {}); !errors.Is(err, boom) {
		t.Fatalf("subscribe err = %v", err)
	}
	s.FailSubscribe(nil)

	sink, ch := recorder(t)
	unsub, _ := s.Subscribe(ctx, "a", sink)
	defer unsub()
	next(t, ch)
	s.Break("a", boom)
	if snap := next(t, ch); !errors.Is(snap.Err, boom) {
		t.Fatalf("broken snapshot = %+v", snap)
	}
}

func TestWritesEnforceRecordConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	var werr *core.WriteError
	if _, err := s.Create(ctx, core.Transaction{OwnerID: "alice", Kind: "transfer"}); !errors.As(err, &werr) {
		t.Fatalf("create with unknown kind: %v, want *core.WriteError", err)
	}
	id, err := s.Create(ctx, core.Transaction{OwnerID: "alice", Kind: core.Income})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, id, core.Transaction{OwnerID: "alice", Kind: core.Expense, Amount: core.Money{Cents: -1}}); !errors.As(err, &werr) {
		t.Errorf("update with negative amount: %v, want *core.WriteError", err)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New()
	sink, ch := recorder(t)
	unsub, _ := s.Subscribe(context.Background(), "a", sink)
	next(t, ch)

	unsub()
	unsub()
	if n := s.Subscribers(); n != 0 {
		t.Fatalf("Subscribers() = %d, want 0", n)
	}
	s.Create(context.Background(), core.Transaction{OwnerID: "a", Kind: core.Expense})
	select {
	case snap := <-ch:
		t.Fatalf("push after unsubscribe: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}
