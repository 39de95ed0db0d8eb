package service

import "context"

// TransactionManager abstracts database transactions so services can compose
// multi-repository writes atomically without depending on pgx directly.
type TransactionManager interface {
	// WithTransaction executes fn inside a transaction. Repositories called
	// with the ctx passed to fn join that transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
