package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil (run on the
// pool) or a handle produced by TransactionManager.
type Tx = any

// TransactionManager begins a transaction, invokes the callback, and
// commits or rolls back depending on the callback's error.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
