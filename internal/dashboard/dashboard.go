// Package dashboard derives the presented view of the store: the filtered
// list and its totals, recomputed on every store transition.
package dashboard

import (
	"sync"
	"time"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

const defaultCacheSize = 32

// Source is the store as seen by the board.
type Source interface {
	State() store.State
	Watch(fn func(store.State)) (cancel func())
}

// View is everything a presentation layer renders for one store state and
// one set of criteria. Views are cached and shared; treat them as read-only.
type View struct {
	State    store.State
	Criteria core.Criteria
	// Filtered is State.Transactions narrowed by Criteria, order kept.
	Filtered []core.Transaction
	// Summary covers the whole list; FilteredSummary only Filtered.
	Summary         core.Summary
	FilteredSummary core.Summary
	// ExpensesByCategory and IncomeByCategory break down Filtered.
	ExpensesByCategory []core.CategoryAmount
	IncomeByCategory   []core.CategoryAmount
}

type viewKey struct {
	version  uint64
	criteria string
}

type Board struct {
	src    Source
	loc    *time.Location
	logger *log.Logger
	views  *cache.LRU[viewKey, View]

	mu        sync.Mutex
	criteria  core.Criteria
	watchers  map[uint64]func(View)
	nextWatch uint64
	stop      func()

	// deliverMu orders deliveries; latest is the newest state delivered.
	deliverMu sync.Mutex
	latest    store.State
}

type Option func(*Board)

// WithLocation sets the zone used for date criteria that carry none.
func WithLocation(loc *time.Location) Option {
	return func(b *Board) { b.loc = loc }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Board) { b.logger = l.WithComponent(log.ComponentDashboard) }
}

// WithCacheSize bounds how many computed views are kept.
func WithCacheSize(n int) Option {
	return func(b *Board) { b.views = cache.NewLRU[viewKey, View](n) }
}

// New starts following src. Call Close to stop.
func New(src Source, opts ...Option) *Board {
	b := &Board{
		src:      src,
		loc:      time.Local,
		logger:   log.Default().WithComponent(log.ComponentDashboard),
		views:    cache.NewLRU[viewKey, View](defaultCacheSize),
		watchers: map[uint64]func(View){},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.views.OnEvict(func(k viewKey, _ View) {
		b.logger.Debug("View evicted", log.FieldVersion, k.version)
	})
	b.stop = src.Watch(b.onState)
	return b
}

// Close stops following the store.
func (b *Board) Close() {
	b.stop()
}

// Criteria returns the active criteria.
func (b *Board) Criteria() core.Criteria {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.criteria
}

// SetCriteria replaces the active criteria and notifies watchers with the
// recomputed view.
func (b *Board) SetCriteria(c core.Criteria) {
	b.mu.Lock()
	b.criteria = c
	b.mu.Unlock()

	// State may race with a transition delivered through onState; the newer
	// of the two wins.
	st := b.src.State()
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	if st.Version < b.latest.Version {
		st = b.latest
	}
	b.latest = st
	b.notify(b.view(st, c))
}

// Current returns the view for the store's current state.
func (b *Board) Current() View {
	return b.view(b.src.State(), b.Criteria())
}

// ViewFor returns the view of the current state under c, leaving the
// active criteria alone.
func (b *Board) ViewFor(c core.Criteria) View {
	return b.view(b.src.State(), c)
}

// Watch calls fn with a fresh view after every store transition and every
// criteria change. Views arrive in store version order; fn must not call
// SetCriteria synchronously.
func (b *Board) Watch(fn func(View)) (cancel func()) {
	b.mu.Lock()
	id := b.nextWatch
	b.nextWatch++
	b.watchers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			b.mu.Unlock()
		})
	}
}

func (b *Board) onState(st store.State) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	if st.Version < b.latest.Version {
		return
	}
	b.latest = st
	b.notify(b.view(st, b.Criteria()))
}

func (b *Board) notify(v View) {
	b.mu.Lock()
	fns := make([]func(View), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (b *Board) view(st store.State, c core.Criteria) View {
	if c.Location == nil {
		c.Location = b.loc
	}
	key := viewKey{version: st.Version, criteria: c.Key()}
	if v, ok := b.views.Get(key); ok {
		return v
	}

	filtered := core.Filter(st.Transactions, c)
	v := View{
		State:              st,
		Criteria:           c,
		Filtered:           filtered,
		Summary:            core.Aggregate(st.Transactions),
		FilteredSummary:    core.Aggregate(filtered),
		ExpensesByCategory: core.AggregateByCategory(filtered, core.Expense),
		IncomeByCategory:   core.AggregateByCategory(filtered, core.Income),
	}
	b.views.Set(key, v)
	b.logger.Debug("View recomputed",
		log.FieldStatus, st.Status.String(),
		log.FieldCount, len(filtered))
	return v
}
