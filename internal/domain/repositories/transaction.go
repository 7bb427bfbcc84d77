package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx runs fn inside one transaction: commit on nil, rollback on
	// error. The transaction travels through the context.
	ExecTx(ctx context.Context, fn TxFn) error
}
