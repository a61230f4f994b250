package queue

import (
	"context"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/store"
)

// Store-backed persisters for the two entity kinds. Exactly one manager
// instance writes each collection at a time in this single-user model.

type TransactionPersister struct {
	Store *store.Store
}

func (p TransactionPersister) Replace(ctx context.Context, items []core.Transaction) error {
	return p.Store.ReplaceTransactionQueue(ctx, items)
}

func (p TransactionPersister) Load(ctx context.Context) ([]core.Transaction, error) {
	return p.Store.QueuedTransactions(ctx)
}

func (p TransactionPersister) Clear(ctx context.Context) error {
	return p.Store.ClearTransactionQueue(ctx)
}

type InvestmentPersister struct {
	Store *store.Store
}

func (p InvestmentPersister) Replace(ctx context.Context, items []core.InvestmentTransaction) error {
	return p.Store.ReplaceInvestmentQueue(ctx, items)
}

func (p InvestmentPersister) Load(ctx context.Context) ([]core.InvestmentTransaction, error) {
	return p.Store.QueuedInvestments(ctx)
}

func (p InvestmentPersister) Clear(ctx context.Context) error {
	return p.Store.ClearInvestmentQueue(ctx)
}
