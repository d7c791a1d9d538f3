package store

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// txState is the transaction bound to a context plus the work waiting for its commit.
type txState struct {
	tx          *gorm.DB
	afterCommit []func()
}

// DB wraps the gorm handle and binds repository calls to the transaction
// carried in the context, so every component called inside Transaction joins it.
type DB struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

// Gorm exposes the underlying connection for callers outside the core (HTTP glue, workers).
func (d *DB) Gorm() *gorm.DB {
	return d.db
}

// Conn returns the transaction bound to ctx, or a fresh session on the base connection.
func (d *DB) Conn(ctx context.Context) *gorm.DB {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.tx
	}
	return d.db.WithContext(ctx)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// Transaction runs fn atomically. A nested call joins the outer transaction;
// any error returned by fn rolls back every write made through ctx. Hooks
// registered with AfterCommit run, in order, once the outermost call commits.
func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	st := &txState{}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st.tx = tx
		return fn(context.WithValue(ctx, txKey{}, st))
	})
	if err != nil {
		return err
	}
	for _, hook := range st.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx commits. A rolled back
// transaction drops it. Without a transaction fn runs immediately.
func (d *DB) AfterCommit(ctx context.Context, fn func()) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn()
}
