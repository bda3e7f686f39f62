// Package store keeps the current session's transactions as a replica of
// the remote collection.
//
// The local list changes only when a snapshot for the current subscription
// generation arrives, and then it is replaced wholesale. Writes go straight
// to the remote collection and become visible through a later snapshot;
// nothing is applied optimistically.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"financas/internal/collection"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/metrics"
)

var (
	// ErrNoSession is returned by writes while no owner is open.
	ErrNoSession = errors.New("no open session")

	// ErrSuperseded is returned by an Open that lost to a later Open or Close.
	ErrSuperseded = errors.New("session superseded")
)

// Status describes the local list.
type Status int

const (
	// StatusClosed: no session; the list is empty.
	StatusClosed Status = iota
	// StatusLoading: subscribed, first snapshot not received yet.
	StatusLoading
	// StatusReady: the list mirrors the last snapshot.
	StatusReady
	// StatusUnavailable: the stream failed; the list is the last good one
	// and Err says why.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is an immutable view of the store at one point in time.
type State struct {
	OwnerID    string
	Generation uint64
	// Version increases on every transition and identifies this exact list.
	Version      uint64
	Status       Status
	Err          error
	Transactions []core.Transaction
}

type Store struct {
	remote     collection.Collection
	categories core.Categories
	logger     *log.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	loc        *time.Location

	// transitions serializes state changes with their notifications so
	// watchers observe them in order.
	transitions sync.Mutex

	mu         sync.Mutex
	owner      string
	generation uint64
	version    uint64
	status     Status
	err        error
	list       []core.Transaction
	unsub      collection.Unsubscribe
	watchers   map[uint64]func(State)
	nextWatch  uint64
}

// Option configures a Store.
type Option func(*Store)

func WithCategories(c core.Categories) Option {
	return func(s *Store) { s.categories = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now as the default OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone for date-only and zoneless input timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// New returns a closed store writing to and replicating from remote.
func New(remote collection.Collection, opts ...Option) *Store {
	s := &Store{
		remote:     remote,
		categories: core.DefaultCategories(),
		logger:     log.Default().WithComponent(log.ComponentStore),
		now:        time.Now,
		loc:        time.Local,
		watchers:   map[uint64]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open switches the store to ownerID. The previous subscription is torn
// down and the list cleared, and watchers see that empty list before any
// of the new owner's data. Open blocks while the subscription is set up;
// ctx bounds only that setup.
func (s *Store) Open(ctx context.Context, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return fmt.Errorf("open: %w", ErrNoSession)
	}

	var (
		gen  uint64
		prev collection.Unsubscribe
	)
	s.transition(func() bool {
		s.generation++
		gen = s.generation
		prev, s.unsub = s.unsub, nil
		s.owner = ownerID
		s.status = StatusLoading
		s.err = nil
		s.list = nil
		return true
	})
	if prev != nil {
		prev()
	}
	s.metrics.Cleared()

	unsub, err := s.remote.Subscribe(ctx, ownerID, func(snap collection.Snapshot) {
		s.onSnapshot(gen, snap)
	})

	superseded := false
	s.transition(func() bool {
		if gen != s.generation {
			superseded = true
			return false
		}
		if err != nil {
			s.status = StatusUnavailable
			s.err = &core.SubscriptionError{OwnerID: ownerID, Err: err}
			return true
		}
		s.unsub = unsub
		return false
	})

	switch {
	case superseded:
		if unsub != nil {
			unsub()
		}
		s.logger.DebugContext(ctx, "Subscription superseded before it was installed",
			log.NewFields().WithOwner(ownerID, gen).ToSlice()...)
		return ErrSuperseded
	case err != nil:
		s.metrics.StreamError()
		s.logger.ErrorContext(ctx, "Failed to open transaction stream",
			log.NewFields().WithOwner(ownerID, gen).WithOperation(log.OpSubscribe).WithError(err).ToSlice()...)
		return &core.SubscriptionError{OwnerID: ownerID, Err: err}
	}

	s.metrics.Subscribed()
	s.logger.InfoContext(ctx, "Session opened", log.NewFields().WithOwner(ownerID, gen).ToSlice()...)
	return nil
}

// Close tears down the subscription and clears the list. Calling it on a
// closed store is a no-op.
func (s *Store) Close() {
	var (
		prev    collection.Unsubscribe
		owner   string
		changed bool
	)
	s.transition(func() bool {
		if s.status == StatusClosed && s.unsub == nil {
			return false
		}
		s.generation++
		prev, s.unsub = s.unsub, nil
		owner = s.owner
		s.owner = ""
		s.status = StatusClosed
		s.err = nil
		s.list = nil
		changed = true
		return true
	})
	if prev != nil {
		prev()
	}
	if changed {
		s.metrics.Cleared()
		s.logger.Info("Session closed", log.FieldOwnerID, owner)
	}
}

// onSnapshot applies a push from the subscription opened as generation gen.
func (s *Store) onSnapshot(gen uint64, snap collection.Snapshot) {
	var (
		stale bool
		owner string
		size  int
	)
	s.transition(func() bool {
		if gen != s.generation {
			stale = true
			return false
		}
		owner = s.owner
		if snap.Err != nil {
			s.status = StatusUnavailable
			s.err = &core.SubscriptionError{OwnerID: s.owner, Err: snap.Err}
			return true
		}
		s.list = snap.Transactions
		s.status = StatusReady
		s.err = nil
		size = len(snap.Transactions)
		return true
	})

	switch {
	case stale:
		s.metrics.Discarded()
		s.logger.Debug("Discarded snapshot from superseded subscription", log.FieldGeneration, gen)
	case snap.Err != nil:
		s.metrics.StreamError()
		s.logger.Error("Transaction stream failed, keeping last good list",
			log.NewFields().WithOwner(owner, gen).WithError(snap.Err).ToSlice()...)
	default:
		s.metrics.Applied(size)
		s.logger.Debug("Snapshot applied",
			log.NewFields().WithOwner(owner, gen).WithCount(size).ToSlice()...)
	}
}

// transition applies mutate under the state lock and, when it reports a
// change, notifies watchers with the resulting state before the next
// transition can start.
func (s *Store) transition(mutate func() bool) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	s.mu.Lock()
	if !mutate() {
		s.mu.Unlock()
		return
	}
	s.version++
	st := s.stateLocked()
	watchers := make([]func(State), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(st)
	}
}

func (s *Store) stateLocked() State {
	return State{
		OwnerID:      s.owner,
		Generation:   s.generation,
		Version:      s.version,
		Status:       s.status,
		Err:          s.err,
		Transactions: append([]core.Transaction(nil), s.list...),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Transactions returns a copy of the current list.
func (s *Store) Transactions() []core.Transaction {
	return s.State().Transactions
}

// Categories returns the configured category set.
func (s *Store) Categories() core.Categories {
	return s.categories
}

// Watch calls fn with every subsequent state transition, in order, until
// cancel is called. fn runs on the goroutine that caused the transition and
// must not call Open or Close.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Ready waits until the current generation has delivered its first
// snapshot or failed, and returns that state. A closed store returns
// ErrNoSession.
func (s *Store) Ready(ctx context.Context) (State, error) {
	ch := make(chan State, 1)
	offer := func(st State) {
		select {
		case ch <- st:
		default:
			// Keep only the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
	cancel := s.Watch(offer)
	defer cancel()
	offer(s.State())

	for {
		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case st := <-ch:
			switch st.Status {
			case StatusClosed:
				return st, ErrNoSession
			case StatusReady:
				return st, nil
			case StatusUnavailable:
				return st, st.Err
			}
		}
	}
}

func (s *Store) session() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return "", ErrNoSession
	}
	return s.owner, nil
}

// Add validates in and creates it remotely for the current owner. The new
// record shows up in the list only once the collection pushes it back.
func (s *Store) Add(ctx context.Context, in core.Input) (string, error) {
	owner, err := s.session()
	if err != nil {
		return "", err
	}
	tx, err := in.Normalize(s.categories, s.now(), s.loc)
	if err != nil {
		s.metrics.Write(log.OpCreate, metrics.ResultInvalid)
		return "", err
	}
	tx.OwnerID = owner

	id, err := s.remote.Create(ctx, tx)
	if err != nil {
		err = s.writeFailed(ctx, log.OpCreate, owner, "", err)
		return "", err
	}
	s.metrics.Write(log.OpCreate, metrics.ResultOK)
	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithOwner(owner, s.State().Generation).
			WithTransaction(id, string(tx.Kind), tx.Amount.Cents, tx.Category).ToSlice()...)
	return id, nil
}

// Edit replaces every mutable field of id with in. It reports
// core.ErrNotFound when the record no longer exists remotely.
func (s *Store) Edit(ctx context.Context, id string, in core.Input) error {
	owner, err := s.session()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("edit: %w", core.ErrNotFound)
	}
	tx, err := in.Normalize(s.categories, s.now(), s.loc)
	if err != nil {
		s.metrics.Write(log.OpUpdate, metrics.ResultInvalid)
		return err
	}
	tx.ID = id
	tx.OwnerID = owner

	if err := s.remote.Update(ctx, id, tx); err != nil {
		return s.writeFailed(ctx, log.OpUpdate, owner, id, err)
	}
	s.metrics.Write(log.OpUpdate, metrics.ResultOK)
	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithTransaction(id, string(tx.Kind), tx.Amount.Cents, tx.Category).ToSlice()...)
	return nil
}

// Remove deletes id. Removing a record that is already gone succeeds.
func (s *Store) Remove(ctx context.Context, id string) error {
	owner, err := s.session()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	err = s.remote.Delete(ctx, owner, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.metrics.Write(log.OpDelete, metrics.ResultNotFound)
		s.logger.DebugContext(ctx, "Transaction already removed", log.FieldTransactionID, id)
		return nil
	case err != nil:
		return s.writeFailed(ctx, log.OpDelete, owner, id, err)
	}
	s.metrics.Write(log.OpDelete, metrics.ResultOK)
	s.logger.InfoContext(ctx, "Transaction removed", log.FieldOwnerID, owner, log.FieldTransactionID, id)
	return nil
}

// writeFailed records a failed write and returns it as core.ErrNotFound or
// a *core.WriteError.
func (s *Store) writeFailed(ctx context.Context, op, owner, id string, err error) error {
	fields := log.NewFields().WithOperation(op).WithError(err)
	fields[log.FieldOwnerID] = owner
	if id != "" {
		fields[log.FieldTransactionID] = id
	}
	if errors.Is(err, core.ErrNotFound) {
		s.metrics.Write(op, metrics.ResultNotFound)
		s.logger.WarnContext(ctx, "Transaction not found", fields.ToSlice()...)
		return err
	}
	s.metrics.Write(op, metrics.ResultFailed)
	s.logger.ErrorContext(ctx, "Transaction write failed", fields.ToSlice()...)

	var werr *core.WriteError
	if errors.As(err, &werr) {
		return err
	}
	return &core.WriteError{Op: op, Err: err}
}
