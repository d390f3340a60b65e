package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is the opaque transaction handle passed through repository methods.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// accept nil for the non-transactional path.
type Tx interface{}

// TransactionManager executes fn inside one database transaction, passing the
// handle as tx. fn returning an error rolls back; otherwise the tx commits.
// Keeps transaction types out of use-case signatures.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
