// Package storage is the SQLite-backed transaction collection.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/collection"
	"financas/internal/core"
	"financas/internal/log"

	_ "modernc.org/sqlite"
)

// Change describes a committed write, for other processes sharing the
// database.
type Change struct {
	OwnerID       string
	TransactionID string
	Op            string
	At            time.Time
}

// Notifier is told about every committed write.
type Notifier interface {
	NotifyChange(ctx context.Context, c Change) error
}

type Repository struct {
	db       *sql.DB
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
	poll     time.Duration
	notifier Notifier

	mu        sync.Mutex
	lastStamp time.Time
	subs      map[uint64]*subscription
	nextSub   uint64
	closed    bool
}

var _ collection.Collection = (*Repository)(nil)

type Option func(*Repository)

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l.WithComponent(log.ComponentStorage) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithIDs(next func() string) Option {
	return func(r *Repository) { r.newID = next }
}

// WithPollInterval makes every subscription re-read its owner's rows at
// least this often, picking up writes from processes that do not notify.
// Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(r *Repository) { r.poll = d }
}

// WithNotifier publishes committed writes through n.
func WithNotifier(n Notifier) Option {
	return func(r *Repository) { r.notifier = n }
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, opts ...Option) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)"

	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers within the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &Repository{
		db:     db,
		logger: log.Default().WithComponent(log.ComponentStorage),
		now:    time.Now,
		newID:  uuid.NewString,
		subs:   map[uint64]*subscription{},
	}
	for _, opt := range opts {
		opt(r)
	}

	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(updated_at) FROM transactions`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("read last stamp: %w", err)
	}
	if last.Valid {
		r.lastStamp = time.Unix(0, last.Int64)
	}

	return r, nil
}

// Close ends every subscription and closes the database.
func (r *Repository) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = map[uint64]*subscription{}
	r.closed = true
	r.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create inserts tx under a fresh id with server timestamps.
func (r *Repository) Create(ctx context.Context, tx core.Transaction) (string, error) {
	tx.ID = r.newID()
	stamp := r.stamp()
	tx.CreatedAt, tx.UpdatedAt = stamp, stamp

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, kind, description, amount_cents, category, occurred_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, string(tx.Kind), tx.Description, tx.Amount.Cents, tx.Category,
		tx.OccurredAt.UnixNano(), stamp.UnixNano(), stamp.UnixNano())
	if err != nil {
		return "", &core.WriteError{Op: log.OpCreate, Err: err}
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.NewFields().WithTransaction(tx.ID, string(tx.Kind), tx.Amount.Cents, tx.Category).ToSlice()...)
	r.committed(ctx, Change{OwnerID: tx.OwnerID, TransactionID: tx.ID, Op: log.OpCreate, At: stamp})
	return tx.ID, nil
}

// Update replaces the mutable fields of the owner's record id.
func (r *Repository) Update(ctx context.Context, id string, tx core.Transaction) error {
	stamp := r.stamp()
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET kind = ?, description = ?, amount_cents = ?, category = ?, occurred_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		string(tx.Kind), tx.Description, tx.Amount.Cents, tx.Category, tx.OccurredAt.UnixNano(), stamp.UnixNano(),
		id, tx.OwnerID)
	if err := affectedOne(res, err, log.OpUpdate, id); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Transaction updated in SQLite",
		log.NewFields().WithTransaction(id, string(tx.Kind), tx.Amount.Cents, tx.Category).ToSlice()...)
	r.committed(ctx, Change{OwnerID: tx.OwnerID, TransactionID: id, Op: log.OpUpdate, At: stamp})
	return nil
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err := affectedOne(res, err, log.OpDelete, id); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Transaction deleted from SQLite", log.FieldTransactionID, id)
	r.committed(ctx, Change{OwnerID: ownerID, TransactionID: id, Op: log.OpDelete, At: r.now()})
	return nil
}

func affectedOne(res sql.Result, err error, op, id string) error {
	if err != nil {
		return &core.WriteError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.WriteError{Op: op, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, core.ErrNotFound)
	}
	return nil
}

// committed refreshes local subscribers and tells the notifier. A failed
// notification does not undo the write.
func (r *Repository) committed(ctx context.Context, c Change) {
	r.Invalidate(c.OwnerID)
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyChange(ctx, c); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish change notification",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

// List returns the owner's transactions, newest first, insertion order on
// ties.
func (r *Repository) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, description, amount_cents, category, occurred_at, created_at, updated_at
		FROM transactions
		WHERE owner_id = ?
		ORDER BY occurred_at DESC, seq ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			tx                         core.Transaction
			kind                       string
			occurred, created, updated int64
		)
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &kind, &tx.Description, &tx.Amount.Cents, &tx.Category,
			&occurred, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = core.Kind(kind)
		tx.OccurredAt = time.Unix(0, occurred)
		tx.CreatedAt = time.Unix(0, created)
		tx.UpdatedAt = time.Unix(0, updated)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// stamp returns a strictly increasing server time.
func (r *Repository) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now()
	if !t.After(r.lastStamp) {
		t = r.lastStamp.Add(time.Nanosecond)
	}
	r.lastStamp = t
	return t
}

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("repository closed")
