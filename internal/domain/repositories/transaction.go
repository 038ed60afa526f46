package repositories

import "context"

// TxFn is a function that runs within a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
type TransactionManager interface {
	// ExecTx executes fn within a transaction. Repositories called with the
	// ctx passed to fn participate in the same transaction.
	ExecTx(ctx context.Context, fn TxFn) error
}
