// Package memory is an in-process transaction collection. It behaves like
// the remote store (server-assigned ids and timestamps, owner-scoped pushes
// of full snapshots) and doubles as the test fake, with fault injection.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/collection"
	"financas/internal/core"
)

type subscription struct {
	owner string
	feed  *collection.Feed
}

type Store struct {
	mu        sync.Mutex
	docs      []core.Transaction // insertion order
	subs      map[uint64]*subscription
	nextSub   uint64
	now       func() time.Time
	lastStamp time.Time
	newID     func() string
	writeErr  error
	subErr    error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the uuid generator.
func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

func New(opts ...Option) *Store {
	s := &Store{
		subs:  map[uint64]*subscription{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ collection.Collection = (*Store)(nil)

// Subscribe pushes the owner's current snapshot right away and again after
// every write that touches that owner.
func (s *Store) Subscribe(_ context.Context, ownerID string, sink func(collection.Snapshot)) (collection.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subErr != nil {
		return nil, s.subErr
	}
	id := s.nextSub
	s.nextSub++
	sub := &subscription{owner: ownerID, feed: collection.NewFeed(sink)}
	s.subs[id] = sub
	sub.feed.Push(collection.Snapshot{Transactions: s.snapshotLocked(ownerID)})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.feed.Stop()
		})
	}, nil
}

// Create stores tx under a fresh id with server timestamps.
func (s *Store) Create(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return "", &core.WriteError{Op: "create", Err: s.writeErr}
	}
	if err := checkRecord(tx); err != nil {
		return "", &core.WriteError{Op: "create", Err: err}
	}
	tx.ID = s.newID()
	tx.CreatedAt = s.stampLocked()
	tx.UpdatedAt = tx.CreatedAt
	s.docs = append(s.docs, tx)
	s.publishLocked(tx.OwnerID)
	return tx.ID, nil
}

// Update replaces the record's mutable fields; owner and creation time stay.
func (s *Store) Update(_ context.Context, id string, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return &core.WriteError{Op: "update", Err: s.writeErr}
	}
	if err := checkRecord(tx); err != nil {
		return &core.WriteError{Op: "update", Err: err}
	}
	i := s.indexLocked(tx.OwnerID, id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, core.ErrNotFound)
	}
	cur := s.docs[i]
	cur.Kind = tx.Kind
	cur.Description = tx.Description
	cur.Amount = tx.Amount
	cur.Category = tx.Category
	cur.OccurredAt = tx.OccurredAt
	cur.UpdatedAt = s.stampLocked()
	s.docs[i] = cur
	s.publishLocked(cur.OwnerID)
	return nil
}

// checkRecord enforces the same constraints as the SQLite schema.
func checkRecord(tx core.Transaction) error {
	if !tx.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", tx.Kind)
	}
	if tx.Amount.Cents < 0 {
		return fmt.Errorf("negative amount %d", tx.Amount.Cents)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return &core.WriteError{Op: "delete", Err: s.writeErr}
	}
	i := s.indexLocked(ownerID, id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	s.publishLocked(ownerID)
	return nil
}

// FailWrites makes every following write fail with err; nil heals.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// FailSubscribe makes new subscriptions fail with err; nil heals.
func (s *Store) FailSubscribe(err error) {
	s.mu.Lock()
	s.subErr = err
	s.mu.Unlock()
}

// Break pushes a stream failure to every subscriber of ownerID.
func (s *Store) Break(ownerID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.owner == ownerID {
			sub.feed.Push(collection.Snapshot{Err: err})
		}
	}
}

// Resync pushes a fresh snapshot to every subscriber of ownerID.
func (s *Store) Resync(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ownerID)
}

// Subscribers counts live subscriptions, for tests.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) publishLocked(ownerID string) {
	var snap []core.Transaction
	for _, sub := range s.subs {
		if sub.owner != ownerID {
			continue
		}
		if snap == nil {
			snap = s.snapshotLocked(ownerID)
		}
		// Each sink gets its own copy.
		sub.feed.Push(collection.Snapshot{Transactions: append([]core.Transaction(nil), snap...)})
	}
}

func (s *Store) snapshotLocked(ownerID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.docs))
	for _, d := range s.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}

func (s *Store) indexLocked(ownerID, id string) int {
	for i, d := range s.docs {
		if d.ID == id && d.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// stampLocked returns a strictly increasing server time.
func (s *Store) stampLocked() time.Time {
	t := s.now()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}
