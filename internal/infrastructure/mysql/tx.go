package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use, so the
// same methods work inside and outside a listing-scoped transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// dbFromContext returns the transaction carried by ctx, or the base handle.
func dbFromContext(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// ListingLockManager serializes per-listing mutations with a row lock:
// WithListing opens a transaction, takes SELECT ... FOR UPDATE on the
// listing row and carries the transaction in the context so repository
// calls inside fn join it. Concurrent admissions and closings for the same
// listing queue up on the row lock and each observes the previous commit.
type ListingLockManager struct {
	db *sql.DB
}

func NewListingLockManager(db *sql.DB) *ListingLockManager {
	return &ListingLockManager{db: db}
}

func (m *ListingLockManager) WithListing(ctx context.Context, listingID string, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin listing tx: %w", err)
	}

	// Lock the row if it exists; a missing listing still runs fn, which
	// reports ErrNotFound through the normal read path.
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM listings WHERE id = ? FOR UPDATE`, listingID).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		tx.Rollback()
		return fmt.Errorf("lock listing %s: %w", listingID, err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit listing tx: %w", err)
	}
	return nil
}
